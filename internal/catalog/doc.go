// Package catalog holds the demo application's in-memory data: the
// navigation features, the seeded households and the todo list.
//
// Every store is safe for concurrent use. Nothing is persisted; a restart
// returns to the seed data.
package catalog
