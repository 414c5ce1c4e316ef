package catalog

import (
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/internal/clock"
	"github.com/google/uuid"
)

// Household is an investment household owned by one user.
type Household struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreateTime time.Time `json:"createTime"`
	UpdateTime time.Time `json:"updateTime"`
	OwnerID    string    `json:"ownerId"`
	OwnerName  string    `json:"ownerName"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
}

// NewHousehold is the input of Households.Create. Name, OwnerID and
// OwnerName are required.
type NewHousehold struct {
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	OwnerName string `json:"ownerName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// HouseholdPatch updates the non-nil fields of a household.
type HouseholdPatch struct {
	Name      *string `json:"name"`
	OwnerID   *string `json:"ownerId"`
	OwnerName *string `json:"ownerName"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
}

// Households is the household directory.
type Households struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Household
	clock clock.Clock
}

func seedTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(fmt.Sprintf("catalog: bad seed time %q", s))
	}
	return t
}

func seedHouseholds() []Household {
	return []Household{
		{ID: "hh-001", Name: "Smith Family", CreateTime: seedTime("2024-01-15T10:30:00Z"), UpdateTime: seedTime("2025-12-20T14:25:00Z"),
			OwnerID: "user-001", OwnerName: "John Smith", Email: "john.smith@example.com", Phone: "555-123-4567"},
		{ID: "hh-002", Name: "Johnson Household", CreateTime: seedTime("2024-03-22T08:15:00Z"), UpdateTime: seedTime("2026-01-05T16:45:00Z"),
			OwnerID: "user-002", OwnerName: "Jane Johnson", Email: "jane.johnson@example.com", Phone: "555-234-5678"},
		{ID: "hh-003", Name: "Williams Estate", CreateTime: seedTime("2023-11-10T12:00:00Z"), UpdateTime: seedTime("2025-11-30T09:30:00Z"),
			OwnerID: "user-003", OwnerName: "Robert Williams", Email: "robert.williams@example.com", Phone: "555-345-6789"},
		{ID: "hh-004", Name: "Brown Family Trust", CreateTime: seedTime("2024-06-05T14:20:00Z"), UpdateTime: seedTime("2026-02-01T11:15:00Z"),
			OwnerID: "user-004", OwnerName: "Emily Brown", Email: "emily.brown@example.com", Phone: "555-456-7890"},
		{ID: "hh-005", Name: "Davis Household", CreateTime: seedTime("2024-09-18T16:45:00Z"), UpdateTime: seedTime("2026-02-08T13:50:00Z"),
			OwnerID: "user-005", OwnerName: "Michael Davis", Email: "michael.davis@example.com", Phone: "555-567-8901"},
	}
}

// NewHouseholds returns a directory seeded with the demo households. A nil
// clock uses the wall clock.
func NewHouseholds(c clock.Clock) *Households {
	if c == nil {
		c = clock.Real()
	}
	h := &Households{byID: make(map[string]Household), clock: c}
	for _, rec := range seedHouseholds() {
		h.order = append(h.order, rec.ID)
		h.byID[rec.ID] = rec
	}
	return h
}

// List returns every household in creation order.
func (h *Households) List() []Household {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Household, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.byID[id])
	}
	return out
}

// Get returns the household with the given id.
func (h *Households) Get(id string) (Household, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.byID[id]
	if !ok {
		return Household{}, ErrNotFound
	}
	return rec, nil
}

// ByOwner returns the households owned by ownerID, possibly none.
func (h *Households) ByOwner(ownerID string) []Household {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Household, 0)
	for _, id := range h.order {
		if rec := h.byID[id]; rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	return out
}

// Create adds a household under a fresh hh-<uuid> id.
func (h *Households) Create(in NewHousehold) (Household, error) {
	if in.Name == "" || in.OwnerID == "" || in.OwnerName == "" {
		return Household{}, fmt.Errorf("%w: name, ownerId, and ownerName are required", ErrInvalid)
	}
	now := h.clock.Now().UTC()
	rec := Household{
		ID:         "hh-" + uuid.NewString(),
		Name:       in.Name,
		CreateTime: now,
		UpdateTime: now,
		OwnerID:    in.OwnerID,
		OwnerName:  in.OwnerName,
		Email:      in.Email,
		Phone:      in.Phone,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.order = append(h.order, rec.ID)
	h.byID[rec.ID] = rec
	return rec, nil
}

// Update applies p to the household and bumps its update time. The id and
// create time never change.
func (h *Households) Update(id string, p HouseholdPatch) (Household, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.byID[id]
	if !ok {
		return Household{}, ErrNotFound
	}
	setIf(&rec.Name, p.Name)
	setIf(&rec.OwnerID, p.OwnerID)
	setIf(&rec.OwnerName, p.OwnerName)
	setIf(&rec.Email, p.Email)
	setIf(&rec.Phone, p.Phone)
	rec.UpdateTime = h.clock.Now().UTC()
	h.byID[id] = rec
	return rec, nil
}

// Delete removes the household.
func (h *Households) Delete(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.byID[id]; !ok {
		return ErrNotFound
	}
	delete(h.byID, id)
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
