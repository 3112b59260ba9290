package router

import "github.com/gin-gonic/gin"

// Registry collects feature modules and registers their routes in one pass.
type Registry struct {
	Engine      *gin.Engine
	root        *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, root: &engine.RouterGroup}
}

func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

func (r *Registry) RegisterAll() {
	if len(r.middlewares) > 0 {
		r.root.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.root)
	}
}
