package router

import (
	"sort"

	"github.com/gin-gonic/gin"
)

// A module implements one or both of these to put its routes on an engine.
type APIModule interface{ MountAPI(*gin.RouterGroup) }
type AdminModule interface{ MountAdmin(*gin.RouterGroup) }

// Implementing prioritizer orders mounting (lower first); the default is 100.
type prioritizer interface{ Priority() int }

// Registry collects modules for one process. It is not safe for concurrent
// Register calls; mains fill it before building engines.
type Registry struct {
	api   []APIModule
	admin []AdminModule
}

// Register dispatches each module to the API and/or admin list.
func (r *Registry) Register(mods ...any) *Registry {
	for _, mod := range mods {
		if m, ok := mod.(APIModule); ok {
			r.api = append(r.api, m)
		}
		if m, ok := mod.(AdminModule); ok {
			r.admin = append(r.admin, m)
		}
	}
	return r
}

func (r *Registry) mountAPI(g *gin.RouterGroup) {
	mods := append([]APIModule(nil), r.api...)
	sort.SliceStable(mods, func(i, j int) bool { return priorityOf(mods[i]) < priorityOf(mods[j]) })
	for _, m := range mods {
		m.MountAPI(g)
	}
}

func (r *Registry) mountAdmin(g *gin.RouterGroup) {
	mods := append([]AdminModule(nil), r.admin...)
	sort.SliceStable(mods, func(i, j int) bool { return priorityOf(mods[i]) < priorityOf(mods[j]) })
	for _, m := range mods {
		m.MountAdmin(g)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
