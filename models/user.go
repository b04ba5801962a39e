package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username             string             `bson:"username" json:"username"`
	Email                string             `bson:"email,omitempty" json:"email,omitempty"`
	InstagramUserID      string             `bson:"instagram_user_id,omitempty" json:"instagram_user_id,omitempty"`
	InstagramAccessToken string             `bson:"instagram_access_token,omitempty" json:"-"`
	CreatedAt            time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at" json:"updated_at"`
}

// InstagramConnected reports whether the user has stored Instagram credentials.
func (u *User) InstagramConnected() bool {
	return u.InstagramUserID != "" && u.InstagramAccessToken != ""
}

type InstagramConnectRequest struct {
	InstagramUserID string `json:"instagram_user_id" binding:"required"`
	AccessToken     string `json:"access_token" binding:"required"`
}

type PublishRequest struct {
	SuggestionID string `json:"suggestion_id" binding:"required,hexadecimal,len=24"`
}
