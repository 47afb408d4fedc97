package brokertest

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"skillset/internal/wire"
	"skillset/jsonvalue"
)

// SkillFunc runs a registered skill. A returned error is reported to the
// caller as skill_failed with the error text as the message.
type SkillFunc func(args map[string]jsonvalue.Value) (jsonvalue.Value, error)

// Broker is an in-memory skill registry that answers the three operations.
type Broker struct {
	mu       sync.Mutex
	skills   map[string]SkillFunc
	tools    []wire.ToolEntry
	contexts map[string]jsonvalue.Value
}

// NewBroker returns an empty registry.
func NewBroker() *Broker {
	return &Broker{
		skills:   make(map[string]SkillFunc),
		contexts: make(map[string]jsonvalue.Value),
	}
}

// AddSkill registers fn under name and lists it as a tool.
func (b *Broker) AddSkill(name, description string, schema jsonvalue.Value, fn SkillFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.skills[name] = fn
	b.tools = append(b.tools, wire.ToolEntry{Name: name, Description: description, InputSchema: schema})
}

// SetTools replaces the tool listing without touching registered skills.
func (b *Broker) SetTools(tools ...wire.ToolEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tools = append([]wire.ToolEntry(nil), tools...)
}

// SetContext stores a context value.
func (b *Broker) SetContext(name string, value jsonvalue.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contexts[name] = value
}

// Handle implements HandlerFunc.
func (b *Broker) Handle(req wire.Request) Reply {
	switch req.Operation {
	case wire.OpInvoke:
		return b.invoke(req)
	case wire.OpList:
		b.mu.Lock()
		tools := append(make([]wire.ToolEntry, 0, len(b.tools)), b.tools...)
		b.mu.Unlock()
		return OK(req, tools)
	case wire.OpContext:
		return b.context(req)
	default:
		return Fail(req, wire.KindBadRequest, fmt.Sprintf("unsupported operation %q", req.Operation))
	}
}

func (b *Broker) invoke(req wire.Request) Reply {
	payload, err := req.InvokePayload()
	if err != nil {
		return Fail(req, wire.KindBadRequest, err.Error())
	}
	b.mu.Lock()
	fn, ok := b.skills[payload.SkillName]
	b.mu.Unlock()
	if !ok {
		return Fail(req, wire.KindUnknownSkill, fmt.Sprintf("unknown skill %q", payload.SkillName))
	}
	output, err := fn(payload.Args)
	if err != nil {
		return Fail(req, wire.KindSkillFailed, err.Error())
	}
	return OK(req, wire.InvokeResult{InvocationID: uuid.NewString(), Output: output})
}

func (b *Broker) context(req wire.Request) Reply {
	payload, err := req.ContextPayload()
	if err != nil {
		return Fail(req, wire.KindBadRequest, err.Error())
	}
	b.mu.Lock()
	value, ok := b.contexts[payload.Name]
	b.mu.Unlock()
	if !ok {
		return Fail(req, wire.KindNotFound, fmt.Sprintf("context %q not found", payload.Name))
	}
	return OK(req, map[string]jsonvalue.Value{payload.Name: value})
}
