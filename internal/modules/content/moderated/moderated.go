// Package moderated exposes a moderation workflow as gin handlers shared by the content modules.
package moderated

import (
	"errors"
	"io"
	"net/http"

	"github.com/efraim-memorial/backend/internal/moderation"
	"github.com/efraim-memorial/backend/internal/pkg/apperr"
	"github.com/efraim-memorial/backend/internal/pkg/response"
	"github.com/efraim-memorial/backend/internal/store"
	"github.com/gin-gonic/gin"
)

// Binder decodes the request body into a fresh item.
type Binder[T store.Record] func(c *gin.Context) (T, error)

type Actions[T store.Record] struct {
	wf *moderation.Workflow[T]
}

func New[T store.Record](wf *moderation.Workflow[T]) *Actions[T] {
	return &Actions[T]{wf: wf}
}

func (a *Actions[T]) Workflow() *moderation.Workflow[T] { return a.wf }

// List responds with every item in state.
func (a *Actions[T]) List(state store.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := a.wf.List(c.Request.Context(), state)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.List(c, items)
	}
}

// Submit stores the bound item according to the kind's policy and answers 201.
func (a *Actions[T]) Submit(bind Binder[T], message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := bind(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		if _, err := a.wf.Submit(c.Request.Context(), item); err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusCreated, gin.H{"message": message})
	}
}

// Approve moves the pending item addressed by the route parameter param.
func (a *Actions[T]) Approve(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h, ok := Handle(c, param)
		if !ok {
			return
		}
		item, err := a.wf.Approve(c.Request.Context(), h)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"message": a.wf.Name() + " approved", "item": item})
	}
}

// Edit overwrites the editable fields of a pending item with the bound body.
func (a *Actions[T]) Edit(param string, bind Binder[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		h, ok := Handle(c, param)
		if !ok {
			return
		}
		patch, err := bind(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		item, err := a.wf.Edit(c.Request.Context(), h, patch)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"message": a.wf.Name() + " updated", "item": item})
	}
}

// Delete removes the item addressed by param from the list of state.
func (a *Actions[T]) Delete(state store.State, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h, ok := Handle(c, param)
		if !ok {
			return
		}
		if _, err := a.wf.Delete(c.Request.Context(), state, h); err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"message": a.wf.Name() + " deleted"})
	}
}

// Get responds with a single item of state.
func (a *Actions[T]) Get(state store.State, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h, ok := Handle(c, param)
		if !ok {
			return
		}
		item, err := a.wf.Get(c.Request.Context(), state, h)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, item)
	}
}

// Handle parses the route parameter param, answering 400 when it is not a handle.
func Handle(c *gin.Context, param string) (store.Handle, bool) {
	h, err := store.ParseHandle(c.Param(param))
	if err != nil {
		response.Error(c, err)
		return 0, false
	}
	return h, true
}

// BindJSON returns a Binder that decodes a JSON body of type D and converts it.
func BindJSON[D any, T store.Record](convert func(D) T) Binder[T] {
	return func(c *gin.Context) (T, error) {
		var dto D
		if err := DecodeJSON(c, &dto); err != nil {
			var zero T
			return zero, err
		}
		return convert(dto), nil
	}
}

// DecodeJSON decodes the request body into dst. An empty body leaves dst untouched so
// validation reports the missing fields; a body that is not valid JSON is a validation error.
func DecodeJSON(c *gin.Context, dst interface{}) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("Invalid JSON body")
	}
	return nil
}

// Chain puts the non-nil guards in front of h.
func Chain(guards []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(guards)+1)
	for _, g := range guards {
		if g != nil {
			out = append(out, g)
		}
	}
	return append(out, h)
}
