package entity

import (
	"database/sql/driver"

	"github.com/google/uuid"

	"github.com/99minutos/catalog-system/internal/pkg/pgenum"
)

// Color is stored in a native enum column on Postgres.
type Color string

const (
	ColorRed   Color = "RED"
	ColorGreen Color = "GREEN"
	ColorBlue  Color = "BLUE"
)

// ColorEnum is the registered column type for Color. The name is what
// ITEM_COLOR_ENUM refers to.
var ColorEnum = pgenum.Define("Color", ColorRed, ColorGreen, ColorBlue)

func (c *Color) Scan(src any) error          { return ColorEnum.Scan(c, src) }
func (c Color) Value() (driver.Value, error) { return ColorEnum.Value(c) }

// Item is a catalog entry.
type Item struct {
	Base[int64]  `bson:",inline"`
	Audit        `bson:",inline"`
	Versioned    `bson:",inline"`
	Visibility   `bson:",inline"`
	Name         string `db:"name"        bson:"name"        json:"name"`
	Description  string `db:"description" bson:"description" json:"description"`
	Color        *Color `db:"color"       bson:"color"       json:"color"`
}

// Property is a free-form attribute attached to an Item.
type Property struct {
	Base[uuid.UUID]  `bson:",inline"`
	Ownership[int64] `bson:",inline"`
}

// User is an account able to authenticate against the API.
type User struct {
	Base[int64]  `bson:",inline"`
	Audit        `bson:",inline"`
	Username     string `db:"username"      bson:"username"      json:"username"`
	Email        string `db:"email"         bson:"email"         json:"email"`
	PasswordHash string `db:"password_hash" bson:"password_hash" json:"password_hash"`
	Role         string `db:"role"          bson:"role"          json:"role"`
}
