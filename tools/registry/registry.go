// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package registry

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"axonflow/assistant/tools/base"
)

// ErrToolNotFound is returned by Resolve when no enabled group exposes the
// requested tool name.
type ErrToolNotFound struct {
	Tool string
}

func (e *ErrToolNotFound) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Tool)
}

// Registry manages all registered tool groups and their descriptors.
// Thread-safe for concurrent access.
type Registry struct {
	groups      map[string]base.Group
	descriptors map[string][]base.ToolDescriptor // by group
	byName      map[string]base.ToolDescriptor   // flattened, enabled groups only
	enabled     map[string]bool
	mu          sync.RWMutex
	logger      *log.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		groups:      make(map[string]base.Group),
		descriptors: make(map[string][]base.ToolDescriptor),
		byName:      make(map[string]base.ToolDescriptor),
		enabled:     make(map[string]bool),
		logger:      log.New(os.Stdout, "[TOOL_REGISTRY] ", log.LstdFlags),
	}
}

// Register initializes a group and records its tool descriptors.
// Registering the same group id again is a no-op. A group whose Init fails
// is recorded as disabled: it contributes no descriptors but does not fail
// registration of the rest of the catalog.
func (r *Registry) Register(ctx context.Context, groupID string, group base.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.groups[groupID]; exists {
		r.logger.Printf("Group '%s' already registered, skipping", groupID)
		return nil
	}

	r.groups[groupID] = group

	if err := group.Init(ctx); err != nil {
		r.logger.Printf("Group '%s' failed to initialize, disabled: %v", groupID, err)
		r.enabled[groupID] = false
		return nil
	}

	descs := group.Descriptors()
	r.descriptors[groupID] = descs
	r.enabled[groupID] = true
	for _, d := range descs {
		r.byName[d.Name] = d
	}

	r.logger.Printf("Registered group '%s' with %d tools", groupID, len(descs))
	return nil
}

// Resolve returns the descriptor for a tool name, or a typed not-found
// error when no enabled group exposes it.
func (r *Registry) Resolve(name string) (base.ToolDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.byName[name]
	if !ok {
		return base.ToolDescriptor{}, &ErrToolNotFound{Tool: name}
	}
	if !r.enabled[desc.Group] {
		return base.ToolDescriptor{}, &ErrToolNotFound{Tool: name}
	}
	return desc, nil
}

// Group returns the group implementation that owns a tool name.
func (r *Registry) Group(toolName string) (base.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.byName[toolName]
	if !ok || !r.enabled[desc.Group] {
		return nil, &ErrToolNotFound{Tool: toolName}
	}
	group, ok := r.groups[desc.Group]
	if !ok {
		return nil, &ErrToolNotFound{Tool: toolName}
	}
	return group, nil
}

// GroupByID returns a registered group by its id, enabled or not.
func (r *Registry) GroupByID(groupID string) (base.Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[groupID]
	return g, ok
}

// ListAll returns the union of descriptors across currently enabled
// groups, sorted by tool name for stable output. Disabled groups
// contribute nothing; that is not an error.
func (r *Registry) ListAll() []base.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]base.ToolDescriptor, 0, len(r.byName))
	for _, d := range r.byName {
		if r.enabled[d.Group] {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GroupIDs returns the ids of all registered groups, enabled first.
func (r *Registry) GroupIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.groups))
	for id := range r.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Enabled reports whether a group initialized successfully.
func (r *Registry) Enabled(groupID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[groupID]
}

// Refresh re-initializes one group and replaces its descriptor set. This
// is the only mutation allowed after registration.
func (r *Registry) Refresh(ctx context.Context, groupID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, exists := r.groups[groupID]
	if !exists {
		return fmt.Errorf("group '%s' not registered", groupID)
	}

	// Drop the group's current descriptors before re-reading the catalog.
	for _, d := range r.descriptors[groupID] {
		delete(r.byName, d.Name)
	}

	if err := group.Init(ctx); err != nil {
		r.logger.Printf("Refresh failed for group '%s', disabled: %v", groupID, err)
		r.descriptors[groupID] = nil
		r.enabled[groupID] = false
		return fmt.Errorf("refresh group '%s': %w", groupID, err)
	}

	descs := group.Descriptors()
	r.descriptors[groupID] = descs
	r.enabled[groupID] = true
	for _, d := range descs {
		r.byName[d.Name] = d
	}

	r.logger.Printf("Refreshed group '%s' with %d tools", groupID, len(descs))
	return nil
}

// Count returns the number of registered groups.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}

// CloseAll closes every registered group. Used for graceful shutdown.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, group := range r.groups {
		if err := group.Close(ctx); err != nil {
			r.logger.Printf("Error closing group '%s': %v", id, err)
		}
	}
}
