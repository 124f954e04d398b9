package model

// RequestError records a request the engine rejected.
type RequestError struct {
	Request uint64 `json:"request"`
	Op      string `json:"op"`
	Account string `json:"account"`
	Error   string `json:"error"`
}
