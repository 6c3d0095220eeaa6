package api

import (
	"github.com/starford/hours/internal/graph"
	"github.com/starford/hours/internal/models"
)

// SkillLevelRequest is the request body for PATCH /skill/{id}.
type SkillLevelRequest = models.SkillLevelRequest

// UserDataResponse is the GET /user_data payload.
type UserDataResponse = models.UserData

// GraphQLRequest is the POST /graphql body.
type GraphQLRequest = graph.Request

// messageResponse is the GET / payload.
type messageResponse struct {
	Message string `json:"message" example:"Hello World"`
}
