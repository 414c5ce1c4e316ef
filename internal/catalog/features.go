package catalog

// Feature is one navigation entry of the home page.
type Feature struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Icon        string `json:"icon"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

var features = []Feature{
	{ID: "dashboard", Title: "Dashboard", Icon: "🏠", Action: "dashboard", Description: "View your investment dashboard"},
	{ID: "todos", Title: "Todos", Icon: "✓", Action: "todos", Description: "Manage your tasks and todos"},
	{ID: "health-check", Title: "Health Check", Icon: "💚", Action: "health-check", Description: "Check server health status"},
}

// Features returns every feature in display order.
func Features() []Feature {
	return append([]Feature(nil), features...)
}

// FeaturesFor returns the features available to userID. All users currently
// see every feature.
func FeaturesFor(userID string) []Feature {
	_ = userID
	return Features()
}

// FeatureByID returns the feature with the given id.
func FeatureByID(id string) (Feature, error) {
	for _, f := range features {
		if f.ID == id {
			return f, nil
		}
	}
	return Feature{}, ErrNotFound
}
