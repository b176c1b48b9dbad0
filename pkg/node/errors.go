package node

import "fmt"

// RemoteError is what a ClientStub raises when the remote method reported
// failure. It carries only the textual form of the remote error: server-side
// failures cross the node boundary as a single generic type, leaving
// structured error taxonomy to the binding layer.
type RemoteError struct {
	Text string
}

func (e *RemoteError) Error() string { return fmt.Sprintf("remote error: %s", e.Text) }
