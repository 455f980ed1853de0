package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wsrelay/internal/core"
)

// MemberHandlers exposes read-only views of the relay membership.
type MemberHandlers struct {
	relay *core.Relay
	log   *zerolog.Logger
}

// NewMemberHandlers creates a new member handlers instance.
func NewMemberHandlers(relay *core.Relay, logger *zerolog.Logger) *MemberHandlers {
	return &MemberHandlers{
		relay: relay,
		log:   logger,
	}
}

// MemberResponse represents a connected client in API responses.
type MemberResponse struct {
	ID         string `json:"id"`
	RemoteAddr string `json:"remote_addr"`
}

// MembersResponse lists connected clients in broadcast order.
type MembersResponse struct {
	Count   int              `json:"count"`
	Members []MemberResponse `json:"members"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// List returns the current membership set.
// GET /api/members
func (h *MemberHandlers) List(c *gin.Context) {
	members := mapMembers(h.relay.Members())
	h.log.Debug().Int("count", len(members)).Msg("listing members")
	c.JSON(http.StatusOK, MembersResponse{
		Count:   len(members),
		Members: members,
	})
}
