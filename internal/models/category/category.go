package category

import (
	"time"

	"github.com/google/uuid"
)

// Palette is the fixed set of colors a category may use.
var Palette = []string{
	"#ef4444", // red
	"#f97316", // orange
	"#eab308", // yellow
	"#22c55e", // green
	"#14b8a6", // teal
	"#3b82f6", // blue
	"#6366f1", // indigo
	"#8b5cf6", // purple
	"#ec4899", // pink
	"#64748b", // gray
	"#78716c", // brown
	"#0ea5e9", // cyan
}

func ValidColor(color string) bool {
	for _, c := range Palette {
		if c == color {
			return true
		}
	}
	return false
}

// Category groups tasks; TaskCount is derived from the link table and
// counts active tasks only.
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OwnerID   uuid.UUID `json:"-" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color" db:"color"`
	TaskCount int       `json:"task_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
