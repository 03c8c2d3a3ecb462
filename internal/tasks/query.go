package tasks

import (
	"net/url"
	"sort"
	"strings"

	"github.com/s1natex/taskmanager-api/internal/storage/sqlitedb"
)

// SortKey selects the primary ordering of a task listing.
type SortKey int

const (
	// SortNewest lists by creation time, newest first.
	SortNewest SortKey = iota
	// SortDueDate lists soonest due first; tasks without a due date come last.
	SortDueDate
	// SortPriority lists high, then medium, then low.
	SortPriority
)

// ListParams is untrusted client input for a listing.
type ListParams struct {
	Search   string
	Status   string
	Priority string
	SortBy   string
}

// ParseListParams reads search, status, priority and sortBy.
func ParseListParams(v url.Values) ListParams {
	return ListParams{
		Search:   v.Get("search"),
		Status:   v.Get("status"),
		Priority: v.Get("priority"),
		SortBy:   v.Get("sortBy"),
	}
}

// Query is a listing restricted to one owner. The owner is fixed at
// construction and every rendering of the query includes it.
type Query struct {
	ownerID  string
	search   string
	status   Status
	priority Priority
	sort     SortKey
}

// NewQuery scopes p to ownerID, which must come from the verified identity.
// Status and priority values outside their enums are dropped, not rejected.
func NewQuery(ownerID string, p ListParams) Query {
	q := Query{
		ownerID: ownerID,
		search:  strings.TrimSpace(p.Search),
	}
	if s, ok := ParseStatus(p.Status); ok {
		q.status = s
	}
	if pr, ok := ParsePriority(p.Priority); ok {
		q.priority = pr
	}
	switch p.SortBy {
	case "dueDate":
		q.sort = SortDueDate
	case "priority":
		q.sort = SortPriority
	}
	return q
}

func (q Query) OwnerID() string { return q.ownerID }
func (q Query) SortKey() SortKey { return q.sort }

// SQL renders the query for the tasks table. Ties on the sort key are broken
// by newest first, then id.
func (q Query) SQL() (where string, args []any, orderBy string) {
	clauses := []string{"owner_id = ?"}
	args = []any{q.ownerID}

	if q.search != "" {
		pattern := "%" + escapeLike(strings.ToLower(q.search)) + "%"
		clauses = append(clauses, "("+sqlitedb.FoldFunc+`(title) LIKE ? ESCAPE '\' OR `+sqlitedb.FoldFunc+`(description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if q.status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(q.status))
	}
	if q.priority != "" {
		clauses = append(clauses, "priority = ?")
		args = append(args, string(q.priority))
	}

	switch q.sort {
	case SortDueDate:
		orderBy = "due_date IS NULL, due_date ASC, "
	case SortPriority:
		orderBy = "CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC, "
	}
	orderBy += "created_at DESC, id ASC"

	return strings.Join(clauses, " AND "), args, orderBy
}

// Matches is the in-memory form of the SQL predicate.
func (q Query) Matches(t Task) bool {
	if t.OwnerID != q.ownerID {
		return false
	}
	if q.search != "" {
		needle := strings.ToLower(q.search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	if q.status != "" && t.Status != q.status {
		return false
	}
	if q.priority != "" && t.Priority != q.priority {
		return false
	}
	return true
}

// Sort orders ts the same way the SQL ORDER BY does.
func (q Query) Sort(ts []Task) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		switch q.sort {
		case SortDueDate:
			switch {
			case a.DueDate == nil && b.DueDate != nil:
				return false
			case a.DueDate != nil && b.DueDate == nil:
				return true
			case a.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
				return a.DueDate.Before(*b.DueDate)
			}
		case SortPriority:
			if ra, rb := a.Priority.rank(), b.Priority.rank(); ra != rb {
				return ra > rb
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
