package toolsets

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Toolset is a named group of MCP tools, split into tools that only read
// from GitLab and tools that write to it.
type Toolset struct {
	Name        string
	Description string
	Enabled     bool
	readOnly    bool
	writeTools  []server.ServerTool
	readTools   []server.ServerTool
}

// ToolsetGroup manages a collection of Toolsets.
type ToolsetGroup struct {
	Toolsets     map[string]*Toolset
	everythingOn bool
	readOnly     bool
	mu           sync.RWMutex
}

// NewServerTool pairs a tool definition with its handler.
func NewServerTool(tool mcp.Tool, handler server.ToolHandlerFunc) server.ServerTool {
	return server.ServerTool{Tool: tool, Handler: handler}
}

// NewToolset creates a new, disabled Toolset.
func NewToolset(name string, description string) *Toolset {
	return &Toolset{
		Name:        name,
		Description: description,
	}
}

func isReadOnly(tool mcp.Tool) bool {
	return tool.Annotations.ReadOnlyHint != nil && *tool.Annotations.ReadOnlyHint
}

// AddReadTools adds tools that never change state. It panics if a tool is not
// annotated read-only, since registering it in read-only mode would expose a write.
func (t *Toolset) AddReadTools(tools ...server.ServerTool) *Toolset {
	for _, tool := range tools {
		if !isReadOnly(tool.Tool) {
			panic(fmt.Sprintf("tool (%s) must be annotated as read-only to be added as a read tool", tool.Tool.Name))
		}
	}
	t.readTools = append(t.readTools, tools...)
	return t
}

// AddWriteTools adds tools that change state. They are skipped when the
// toolset is read-only.
func (t *Toolset) AddWriteTools(tools ...server.ServerTool) *Toolset {
	for _, tool := range tools {
		if isReadOnly(tool.Tool) {
			panic(fmt.Sprintf("tool (%s) is incorrectly annotated as read-only", tool.Tool.Name))
		}
	}
	t.writeTools = append(t.writeTools, tools...)
	return t
}

// GetActiveTools returns the tools to register given the Enabled and
// read-only flags.
func (t *Toolset) GetActiveTools() []server.ServerTool {
	if !t.Enabled {
		return nil
	}
	active := make([]server.ServerTool, 0, len(t.readTools)+len(t.writeTools))
	active = append(active, t.readTools...)
	if !t.readOnly {
		active = append(active, t.writeTools...)
	}
	return active
}

// RegisterTools adds the active tools to s.
func (t *Toolset) RegisterTools(s *server.MCPServer) {
	if active := t.GetActiveTools(); len(active) > 0 {
		s.AddTools(active...)
	}
}

// SetReadOnly forces the toolset into read-only mode.
func (t *Toolset) SetReadOnly() {
	t.readOnly = true
}

// NewToolsetGroup creates an empty group. readOnly is applied to every
// toolset added later.
func NewToolsetGroup(readOnly bool) *ToolsetGroup {
	return &ToolsetGroup{
		Toolsets: make(map[string]*Toolset),
		readOnly: readOnly,
	}
}

// AddToolset adds ts to the group, replacing any toolset of the same name.
func (tg *ToolsetGroup) AddToolset(ts *Toolset) {
	tg.mu.Lock()
	defer tg.mu.Unlock()

	if tg.readOnly {
		ts.SetReadOnly()
	}
	tg.Toolsets[ts.Name] = ts
}

// EnableToolset enables a single toolset by name.
func (tg *ToolsetGroup) EnableToolset(name string) error {
	tg.mu.Lock()
	defer tg.mu.Unlock()

	ts, ok := tg.Toolsets[name]
	if !ok {
		return fmt.Errorf("toolset '%s' not found", name)
	}
	ts.Enabled = true
	return nil
}

// EnableToolsets enables the named toolsets. "all" enables every toolset.
// Names are trimmed; blanks and duplicates are ignored.
func (tg *ToolsetGroup) EnableToolsets(names []string) error {
	var cleaned []string
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		cleaned = append(cleaned, name)
	}
	if len(cleaned) == 0 {
		return errors.New("no toolsets specified to enable")
	}

	if seen["all"] {
		tg.mu.Lock()
		defer tg.mu.Unlock()
		tg.everythingOn = true
		for _, ts := range tg.Toolsets {
			ts.Enabled = true
		}
		return nil
	}

	for _, name := range cleaned {
		if err := tg.EnableToolset(name); err != nil {
			return err
		}
	}
	return nil
}

// RegisterTools registers the active tools of every enabled toolset with s.
func (tg *ToolsetGroup) RegisterTools(s *server.MCPServer) {
	tg.mu.RLock()
	defer tg.mu.RUnlock()

	for _, ts := range tg.Toolsets {
		ts.RegisterTools(s)
	}
}

// ActiveToolNames lists the names of the tools RegisterTools would register,
// sorted.
func (tg *ToolsetGroup) ActiveToolNames() []string {
	tg.mu.RLock()
	defer tg.mu.RUnlock()

	var names []string
	for _, ts := range tg.Toolsets {
		for _, tool := range ts.GetActiveTools() {
			names = append(names, tool.Tool.Name)
		}
	}
	sort.Strings(names)
	return names
}
