package load

import (
	"fmt"
	"sync"

	contribmixin "github.com/syssam/tabula/contrib/mixin"
	"github.com/syssam/tabula/schema/mixin"
)

var (
	mixinsMu sync.RWMutex
	mixins   = map[string]mixin.Mixin{
		"id":               contribmixin.ID{},
		"create_time":      contribmixin.CreateTime{},
		"update_time":      contribmixin.UpdateTime{},
		"time":             contribmixin.Time{},
		"soft_delete":      contribmixin.SoftDelete{},
		"time_soft_delete": contribmixin.TimeSoftDelete{},
		"tenant_id":        contribmixin.TenantID{},
	}
)

// RegisterMixin makes a mixin available to config files under the given
// name. Built-in names cannot be replaced.
func RegisterMixin(name string, m mixin.Mixin) error {
	if name == "" || m == nil {
		return fmt.Errorf("load: mixin name and implementation are required")
	}
	mixinsMu.Lock()
	defer mixinsMu.Unlock()
	if _, ok := mixins[name]; ok {
		return fmt.Errorf("load: mixin %q is already registered", name)
	}
	mixins[name] = m
	return nil
}

// LookupMixin returns the mixin registered under name.
func LookupMixin(name string) (mixin.Mixin, bool) {
	mixinsMu.RLock()
	defer mixinsMu.RUnlock()
	m, ok := mixins[name]
	return m, ok
}

// Mixins returns the registered mixin names.
func Mixins() []string {
	mixinsMu.RLock()
	defer mixinsMu.RUnlock()
	names := make([]string, 0, len(mixins))
	for name := range mixins {
		names = append(names, name)
	}
	return names
}
