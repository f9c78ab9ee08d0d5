package agent

import "fmt"

// WorkflowError is a fatal failure during a run, tagged with the node that
// produced it. The engine never retries: transient generation failures are
// the LLM layer's concern, and anything that still surfaces here aborts
// the run.
type WorkflowError struct {
	Node Node
	Err  error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("workflow failed at %s: %v", e.Node, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}
