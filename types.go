package skillset

import (
	"skillset/internal/wire"
	"skillset/jsonvalue"
)

// InvocationResult is the decoded outcome of InvokeSkill.
type InvocationResult struct {
	// InvocationID is the id the broker assigned to the nested invocation,
	// when it reports one.
	InvocationID string
	Output       jsonvalue.Value
	// Error is set when the broker reported the skill's failure in-band
	// alongside its output.
	Error *SkillError
}

// Err returns the in-band skill failure as a KindSkill *Error, or nil.
func (r *InvocationResult) Err() error {
	if r == nil || r.Error == nil {
		return nil
	}
	return &Error{
		Op:      string(wire.OpInvoke),
		Kind:    KindSkill,
		Code:    r.Error.Kind,
		Message: r.Error.Message,
		Detail:  r.Error.Detail,
	}
}

// SkillError describes a failure reported by the invoked skill.
type SkillError struct {
	Kind    string
	Message string
	Detail  jsonvalue.Value
}

func (e *SkillError) Error() string {
	if e.Kind == "" {
		return e.Message
	}
	return e.Kind + ": " + e.Message
}

// ToolDescriptor is one entry of a tool listing. It is a snapshot taken at
// call time.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema jsonvalue.Value
}

func invocationResultFromWire(res wire.InvokeResult) *InvocationResult {
	out := &InvocationResult{
		InvocationID: res.InvocationID,
		Output:       res.Output,
	}
	if res.Error != nil {
		out.Error = &SkillError{
			Kind:    res.Error.Kind,
			Message: res.Error.Message,
			Detail:  res.Error.Detail,
		}
	}
	return out
}

func toolsFromWire(entries []wire.ToolEntry) []ToolDescriptor {
	tools := make([]ToolDescriptor, 0, len(entries))
	for _, entry := range entries {
		tools = append(tools, ToolDescriptor{
			Name:        entry.Name,
			Description: entry.Description,
			InputSchema: entry.InputSchema,
		})
	}
	return tools
}
