package httpapi

import (
	"errors"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/catalog"
)

func (a *API) listFeatures(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, success(catalog.Features(), "Features retrieved successfully"))
}

func (a *API) myFeatures(w http.ResponseWriter, r *http.Request) {
	u, _ := goSession.UserFromContext(r.Context())
	body := success(catalog.FeaturesFor(u.UserID), "User features retrieved successfully")
	body.UserID = u.UserID
	writeJSON(w, http.StatusOK, body)
}

func (a *API) getFeature(w http.ResponseWriter, r *http.Request) {
	f, err := catalog.FeatureByID(r.PathValue("featureId"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, envelope{Message: "Feature not found"})
		return
	}
	writeJSON(w, http.StatusOK, success(f, "Feature retrieved successfully"))
}

func householdNotFound(w http.ResponseWriter, id string) {
	writeJSON(w, http.StatusNotFound, envelope{
		Error:   "Household not found",
		Message: "No household found with ID: " + id,
	})
}

func (a *API) listHouseholds(w http.ResponseWriter, _ *http.Request) {
	list := a.households.List()
	writeJSON(w, http.StatusOK, counted(list, len(list)))
}

func (a *API) householdsByOwner(w http.ResponseWriter, r *http.Request) {
	list := a.households.ByOwner(r.PathValue("ownerId"))
	writeJSON(w, http.StatusOK, counted(list, len(list)))
}

func (a *API) getHousehold(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h, err := a.households.Get(id)
	if err != nil {
		householdNotFound(w, id)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: h})
}

func (a *API) createHousehold(w http.ResponseWriter, r *http.Request) {
	var in catalog.NewHousehold
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Error: "Bad Request", Message: badJSONMessage})
		return
	}
	h, err := a.households.Create(in)
	if errors.Is(err, catalog.ErrInvalid) {
		writeJSON(w, http.StatusBadRequest, envelope{
			Error:   "Missing required fields",
			Message: "name, ownerId, and ownerName are required",
		})
		return
	}
	if err != nil {
		internalError(w, r, err, "create household failed")
		return
	}
	writeJSON(w, http.StatusCreated, success(h, "Household created successfully"))
}

func (a *API) updateHousehold(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var p catalog.HouseholdPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Error: "Bad Request", Message: badJSONMessage})
		return
	}
	h, err := a.households.Update(id, p)
	if err != nil {
		householdNotFound(w, id)
		return
	}
	writeJSON(w, http.StatusOK, success(h, "Household updated successfully"))
}

func (a *API) deleteHousehold(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.households.Delete(id); err != nil {
		householdNotFound(w, id)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Household deleted successfully"})
}

type todoInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func todoNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Todo not found", "")
}

func (a *API) listTodos(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.todos.List())
}

func (a *API) getTodo(w http.ResponseWriter, r *http.Request) {
	id, err := catalog.ParseTodoID(r.PathValue("id"))
	if err != nil {
		todoNotFound(w)
		return
	}
	todo, err := a.todos.Get(id)
	if err != nil {
		todoNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (a *API) createTodo(w http.ResponseWriter, r *http.Request) {
	var in todoInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, badJSONMessage, "")
		return
	}
	todo, err := a.todos.Create(in.Title, in.Description)
	if errors.Is(err, catalog.ErrInvalid) {
		writeError(w, http.StatusBadRequest, "Title is required", "")
		return
	}
	if err != nil {
		internalError(w, r, err, "create todo failed")
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

func (a *API) updateTodo(w http.ResponseWriter, r *http.Request) {
	id, err := catalog.ParseTodoID(r.PathValue("id"))
	if err != nil {
		todoNotFound(w)
		return
	}
	var p catalog.TodoPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, badJSONMessage, "")
		return
	}
	todo, err := a.todos.Update(id, p)
	if err != nil {
		todoNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (a *API) deleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := catalog.ParseTodoID(r.PathValue("id"))
	if err != nil {
		todoNotFound(w)
		return
	}
	if err := a.todos.Delete(id); err != nil {
		todoNotFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
