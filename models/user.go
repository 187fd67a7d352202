// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name               string              `bson:"name" json:"name"`
	Email              string              `bson:"email" json:"email"`
	PasswordHash       string              `bson:"passwordHash" json:"-"`
	Role               string              `bson:"role" json:"role"` // vendor, consultant, admin
	Company            string              `bson:"company,omitempty" json:"company,omitempty"`
	Phone              string              `bson:"phone,omitempty" json:"phone,omitempty"`
	AssignedConsultant *primitive.ObjectID `bson:"assignedConsultant,omitempty" json:"assignedConsultant,omitempty"`
	IsActive           bool                `bson:"isActive" json:"isActive"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updatedAt" json:"updatedAt"`
}
