package catalog

import (
	"fmt"
	"strconv"
	"sync"
)

// Todo is one task of the shared todo list.
type Todo struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// TodoPatch updates the non-nil fields of a todo.
type TodoPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// Todos is the shared todo list. Ids are assigned sequentially and never
// reused.
type Todos struct {
	mu     sync.RWMutex
	items  []Todo
	nextID int
}

// NewTodos returns the list seeded with the two demo todos.
func NewTodos() *Todos {
	return &Todos{
		items: []Todo{
			{ID: 1, Title: "Learn Express", Description: "Study Express.js framework"},
			{ID: 2, Title: "Build API", Description: "Create a REST API"},
		},
		nextID: 3,
	}
}

// ParseTodoID parses a path id. Anything that is not an integer matches no
// todo.
func ParseTodoID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: todo %q", ErrNotFound, raw)
	}
	return id, nil
}

// List returns a copy of every todo in creation order.
func (t *Todos) List() []Todo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Todo(nil), t.items...)
}

// Get returns the todo with id or ErrNotFound.
func (t *Todos) Get(id int) (Todo, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.index(id); i >= 0 {
		return t.items[i], nil
	}
	return Todo{}, ErrNotFound
}

// Create appends an open todo. Title is required.
func (t *Todos) Create(title, description string) (Todo, error) {
	if title == "" {
		return Todo{}, fmt.Errorf("%w: Title is required", ErrInvalid)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	todo := Todo{ID: t.nextID, Title: title, Description: description}
	t.nextID++
	t.items = append(t.items, todo)
	return todo, nil
}

// Update applies the non-nil fields of p. An unknown id is ErrNotFound.
func (t *Todos) Update(id int, p TodoPatch) (Todo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.index(id)
	if i < 0 {
		return Todo{}, ErrNotFound
	}
	todo := &t.items[i]
	setIf(&todo.Title, p.Title)
	setIf(&todo.Description, p.Description)
	setIf(&todo.Completed, p.Completed)
	return *todo, nil
}

// Delete removes the todo with id or returns ErrNotFound.
func (t *Todos) Delete(id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.index(id)
	if i < 0 {
		return ErrNotFound
	}
	t.items = append(t.items[:i], t.items[i+1:]...)
	return nil
}

func (t *Todos) index(id int) int {
	for i, todo := range t.items {
		if todo.ID == id {
			return i
		}
	}
	return -1
}
