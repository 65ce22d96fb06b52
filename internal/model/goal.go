package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	AreaWealth        = "wealth"
	AreaHealth        = "health"
	AreaRelationships = "relationships"
	AreaSoul          = "soul"
)

// Areas lists every valid life-area tag.
var Areas = []string{AreaWealth, AreaHealth, AreaRelationships, AreaSoul}

func ValidArea(area string) bool {
	for _, a := range Areas {
		if a == area {
			return true
		}
	}
	return false
}

// AreaList is a set of life-area tags stored as a JSON array in a single column.
type AreaList []string

func (a AreaList) Value() (driver.Value, error) {
	if a == nil {
		a = AreaList{}
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *AreaList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = AreaList{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("cannot scan %T into AreaList", src)
	}
}

func (a AreaList) Contains(area string) bool {
	for _, tag := range a {
		if tag == area {
			return true
		}
	}
	return false
}

type Goal struct {
	ID                     string     `db:"id" json:"id"`
	UserID                 string     `db:"user_id" json:"userId"`
	Title                  string     `db:"title" json:"title"`
	Description            string     `db:"description" json:"description"`
	Areas                  AreaList   `db:"areas" json:"area"`
	StartDate              time.Time  `db:"start_date" json:"startDate"`
	ExpectedCompletionDate time.Time  `db:"expected_completion_date" json:"expectedCompletionDate"`
	ActualCompletionDate   *time.Time `db:"actual_completion_date" json:"actualCompletionDate,omitempty"`
	ExpectedAmount         *float64   `db:"expected_amount" json:"expectedAmount,omitempty"`
	ActualAmount           *float64   `db:"actual_amount" json:"actualAmount,omitempty"`
	ImageURL               *string    `db:"image_url" json:"imageUrl,omitempty"`
	Completed              bool       `db:"completed" json:"completed"`
	CreatedAt              time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updatedAt"`
}
