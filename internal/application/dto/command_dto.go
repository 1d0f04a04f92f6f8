package dto

import "encoding/json"

// Command is one request received on the agent control channel.
type Command struct {
	Type         string          `json:"type"`
	RequestID    string          `json:"request_id,omitempty"`
	Sector       string          `json:"sector,omitempty"`
	ScanID       string          `json:"scan_id,omitempty"`
	Priority     string          `json:"priority,omitempty"`
	ComponentIDs []string        `json:"component_ids,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// CommandResponse is the reply to one Command.
type CommandResponse struct {
	Type      string      `json:"type,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Status    string      `json:"status"`
	Result    interface{} `json:"result"`
	Error     *ErrorDTO   `json:"error,omitempty"`
}

// AgentStatus is one pipeline agent in the roster.
type AgentStatus struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	InFlight int    `json:"in_flight"`
}

// StatusResult answers the status command.
type StatusResult struct {
	Agents    []AgentStatus `json:"agents"`
	Workflows interface{}   `json:"workflows"`
}
