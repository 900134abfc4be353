// Package oapi routes the recipes HTTP API onto a ServerInterface.
package oapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

type contextKey string

// TokenAuthScopes is set on the request context of every operation that needs a caller.
const TokenAuthScopes contextKey = "tokenAuth.Scopes"

type ListTagsParams struct {
	// AssignedOnly keeps only entries attached to at least one of the caller's recipes when non-zero.
	AssignedOnly *int `json:"assigned_only,omitempty"` //nolint:tagliatelle
}

type ListIngredientsParams struct {
	AssignedOnly *int `json:"assigned_only,omitempty"` //nolint:tagliatelle
}

type ListRecipesParams struct {
	// Tags is a comma separated list of tag ids.
	Tags *[]int64 `json:"tags,omitempty"`
	// Ingredients is a comma separated list of ingredient ids.
	Ingredients *[]int64 `json:"ingredients,omitempty"`
}

type ServerInterface interface {
	// (POST /users)
	CreateUser(w http.ResponseWriter, r *http.Request)
	// (POST /users/token)
	CreateToken(w http.ResponseWriter, r *http.Request)
	// (GET /users/me)
	GetMe(w http.ResponseWriter, r *http.Request)
	// (PUT /users/me)
	PutMe(w http.ResponseWriter, r *http.Request)
	// (PATCH /users/me)
	PatchMe(w http.ResponseWriter, r *http.Request)

	// (GET /tags)
	ListTags(w http.ResponseWriter, r *http.Request, params ListTagsParams)
	// (POST /tags)
	CreateTag(w http.ResponseWriter, r *http.Request)
	// (GET /tags/{id})
	GetTag(w http.ResponseWriter, r *http.Request, id int64)
	// (PUT /tags/{id})
	PutTag(w http.ResponseWriter, r *http.Request, id int64)
	// (PATCH /tags/{id})
	PatchTag(w http.ResponseWriter, r *http.Request, id int64)
	// (DELETE /tags/{id})
	DeleteTag(w http.ResponseWriter, r *http.Request, id int64)

	// (GET /ingredients)
	ListIngredients(w http.ResponseWriter, r *http.Request, params ListIngredientsParams)
	// (POST /ingredients)
	CreateIngredient(w http.ResponseWriter, r *http.Request)
	// (GET /ingredients/{id})
	GetIngredient(w http.ResponseWriter, r *http.Request, id int64)
	// (PUT /ingredients/{id})
	PutIngredient(w http.ResponseWriter, r *http.Request, id int64)
	// (PATCH /ingredients/{id})
	PatchIngredient(w http.ResponseWriter, r *http.Request, id int64)
	// (DELETE /ingredients/{id})
	DeleteIngredient(w http.ResponseWriter, r *http.Request, id int64)

	// (GET /recipes)
	ListRecipes(w http.ResponseWriter, r *http.Request, params ListRecipesParams)
	// (POST /recipes)
	CreateRecipe(w http.ResponseWriter, r *http.Request)
	// (GET /recipes/{id})
	GetRecipe(w http.ResponseWriter, r *http.Request, id int64)
	// (PUT /recipes/{id})
	PutRecipe(w http.ResponseWriter, r *http.Request, id int64)
	// (PATCH /recipes/{id})
	PatchRecipe(w http.ResponseWriter, r *http.Request, id int64)
	// (DELETE /recipes/{id})
	DeleteRecipe(w http.ResponseWriter, r *http.Request, id int64)
	// (POST /recipes/{id}/image)
	UploadRecipeImage(w http.ResponseWriter, r *http.Request, id int64)
}

type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper binds request parameters and runs the middlewares
// before calling the ServerInterface method.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// serve runs the middleware chain around h. Operations guarded by a token get
// TokenAuthScopes on their context first.
func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, secured bool,
	h http.HandlerFunc,
) {
	if secured {
		r = r.WithContext(context.WithValue(r.Context(), TokenAuthScopes, []string{}))
	}

	handler := http.Handler(h)
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}

	handler.ServeHTTP(w, r)
}

// withID binds the {id} path parameter inside the middleware chain, so a guarded
// route answers 401 before it complains about a malformed id.
func (siw *ServerInterfaceWrapper) withID(w http.ResponseWriter, r *http.Request,
	call func(w http.ResponseWriter, r *http.Request, id int64),
) {
	raw := chi.URLParam(r, "id")

	siw.serve(w, r, true, func(w http.ResponseWriter, r *http.Request) {
		var id int64

		err := runtime.BindStyledParameterWithOptions("simple", "id", raw, &id,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})

			return
		}

		call(w, r, id)
	})
}

func (siw *ServerInterfaceWrapper) CreateUser(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, false, siw.Handler.CreateUser)
}

func (siw *ServerInterfaceWrapper) CreateToken(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, false, siw.Handler.CreateToken)
}

func (siw *ServerInterfaceWrapper) GetMe(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, true, siw.Handler.GetMe)
}

func (siw *ServerInterfaceWrapper) PutMe(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, true, siw.Handler.PutMe)
}

func (siw *ServerInterfaceWrapper) PatchMe(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, true, siw.Handler.PatchMe)
}

func (siw *ServerInterfaceWrapper) ListTags(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, true, func(w http.ResponseWriter, r *http.Request) {
		var params ListTagsParams

		if err := runtime.BindQueryParameter("form", true, false, "assigned_only", r.URL.Query(),
			&params.AssignedOnly); err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "assigned_only", Err: err})

			return
		}

		siw.Handler.ListTags(w, r, params)
	})
}

func (siw *ServerInterfaceWrapper) CreateTag(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, true, siw.Handler.CreateTag)
}

func (siw *ServerInterfaceWrapper) GetTag(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.GetTag)
}

func (siw *ServerInterfaceWrapper) PutTag(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.PutTag)
}

func (siw *ServerInterfaceWrapper) PatchTag(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.PatchTag)
}

func (siw *ServerInterfaceWrapper) DeleteTag(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.DeleteTag)
}

func (siw *ServerInterfaceWrapper) ListIngredients(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, true, func(w http.ResponseWriter, r *http.Request) {
		var params ListIngredientsParams

		if err := runtime.BindQueryParameter("form", true, false, "assigned_only", r.URL.Query(),
			&params.AssignedOnly); err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "assigned_only", Err: err})

			return
		}

		siw.Handler.ListIngredients(w, r, params)
	})
}

func (siw *ServerInterfaceWrapper) CreateIngredient(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, true, siw.Handler.CreateIngredient)
}

func (siw *ServerInterfaceWrapper) GetIngredient(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.GetIngredient)
}

func (siw *ServerInterfaceWrapper) PutIngredient(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.PutIngredient)
}

func (siw *ServerInterfaceWrapper) PatchIngredient(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.PatchIngredient)
}

func (siw *ServerInterfaceWrapper) DeleteIngredient(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.DeleteIngredient)
}

func (siw *ServerInterfaceWrapper) ListRecipes(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, true, func(w http.ResponseWriter, r *http.Request) {
		var params ListRecipesParams

		if err := runtime.BindQueryParameter("form", false, false, "tags", r.URL.Query(),
			&params.Tags); err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "tags", Err: err})

			return
		}

		if err := runtime.BindQueryParameter("form", false, false, "ingredients", r.URL.Query(),
			&params.Ingredients); err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "ingredients", Err: err})

			return
		}

		siw.Handler.ListRecipes(w, r, params)
	})
}

func (siw *ServerInterfaceWrapper) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, true, siw.Handler.CreateRecipe)
}

func (siw *ServerInterfaceWrapper) GetRecipe(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.GetRecipe)
}

func (siw *ServerInterfaceWrapper) PutRecipe(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.PutRecipe)
}

func (siw *ServerInterfaceWrapper) PatchRecipe(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.PatchRecipe)
}

func (siw *ServerInterfaceWrapper) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.DeleteRecipe)
}

func (siw *ServerInterfaceWrapper) UploadRecipeImage(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.UploadRecipeImage)
}

type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler creates http.Handler with routing matching the API.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{}) //nolint:exhaustruct
}

// HandlerWithOptions creates http.Handler with additional options.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}

	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	base := options.BaseURL

	r.Group(func(r chi.Router) {
		r.Post(base+"/users", wrapper.CreateUser)
		r.Post(base+"/users/token", wrapper.CreateToken)
		r.Get(base+"/users/me", wrapper.GetMe)
		r.Put(base+"/users/me", wrapper.PutMe)
		r.Patch(base+"/users/me", wrapper.PatchMe)
	})
	r.Group(func(r chi.Router) {
		r.Get(base+"/tags", wrapper.ListTags)
		r.Post(base+"/tags", wrapper.CreateTag)
		r.Get(base+"/tags/{id}", wrapper.GetTag)
		r.Put(base+"/tags/{id}", wrapper.PutTag)
		r.Patch(base+"/tags/{id}", wrapper.PatchTag)
		r.Delete(base+"/tags/{id}", wrapper.DeleteTag)
	})
	r.Group(func(r chi.Router) {
		r.Get(base+"/ingredients", wrapper.ListIngredients)
		r.Post(base+"/ingredients", wrapper.CreateIngredient)
		r.Get(base+"/ingredients/{id}", wrapper.GetIngredient)
		r.Put(base+"/ingredients/{id}", wrapper.PutIngredient)
		r.Patch(base+"/ingredients/{id}", wrapper.PatchIngredient)
		r.Delete(base+"/ingredients/{id}", wrapper.DeleteIngredient)
	})
	r.Group(func(r chi.Router) {
		r.Get(base+"/recipes", wrapper.ListRecipes)
		r.Post(base+"/recipes", wrapper.CreateRecipe)
		r.Get(base+"/recipes/{id}", wrapper.GetRecipe)
		r.Put(base+"/recipes/{id}", wrapper.PutRecipe)
		r.Patch(base+"/recipes/{id}", wrapper.PatchRecipe)
		r.Delete(base+"/recipes/{id}", wrapper.DeleteRecipe)
		r.Post(base+"/recipes/{id}/image", wrapper.UploadRecipeImage)
	})

	return r
}
