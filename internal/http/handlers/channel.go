package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
)

// ChannelHandler handles channel and channel link endpoints.
type ChannelHandler struct {
	channels repository.ChannelRepository
	links    repository.ChannelLinkRepository
	tags     repository.TagRepository
}

// NewChannelHandler creates a channel handler.
func NewChannelHandler(
	channels repository.ChannelRepository,
	links repository.ChannelLinkRepository,
	tags repository.TagRepository,
) *ChannelHandler {
	return &ChannelHandler{channels: channels, links: links, tags: tags}
}

// Register registers the channel routes with the API.
func (h *ChannelHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listAccountChannels",
		Method:      "GET",
		Path:        "/api/v1/accounts/{account_id}/channels",
		Summary:     "List an account's channels",
		Tags:        []string{"Channels"},
	}, h.ListByAccount)

	huma.Register(api, huma.Operation{
		OperationID: "getChannel",
		Method:      "GET",
		Path:        "/api/v1/channels/{id}",
		Summary:     "Get channel",
		Tags:        []string{"Channels"},
	}, h.GetByID)

	huma.Register(api, huma.Operation{
		OperationID: "setChannelVisibility",
		Method:      "PUT",
		Path:        "/api/v1/channels/{id}/visibility",
		Summary:     "Set channel visibility",
		Description: "Manually shows or hides a channel in the downstream outputs",
		Tags:        []string{"Channels"},
	}, h.SetVisibility)

	huma.Register(api, huma.Operation{
		OperationID: "getChannelTags",
		Method:      "GET",
		Path:        "/api/v1/channels/{id}/tags",
		Summary:     "Get channel tags",
		Tags:        []string{"Channels"},
	}, h.GetTags)

	huma.Register(api, huma.Operation{
		OperationID: "listChannelLinks",
		Method:      "GET",
		Path:        "/api/v1/channels/{id}/links",
		Summary:     "List a channel's links",
		Tags:        []string{"Channel Links"},
	}, h.ListLinks)

	huma.Register(api, huma.Operation{
		OperationID: "createChannelLink",
		Method:      "POST",
		Path:        "/api/v1/channels/{id}/links",
		Summary:     "Link a channel to another channel's EPG",
		Description: "Guide data for this channel is borrowed from the linked channel with an hour offset",
		Tags:        []string{"Channel Links"},
	}, h.CreateLink)

	huma.Register(api, huma.Operation{
		OperationID: "deleteChannelLink",
		Method:      "DELETE",
		Path:        "/api/v1/links/{id}",
		Summary:     "Delete channel link",
		Tags:        []string{"Channel Links"},
	}, h.DeleteLink)
}

// ListChannelsInput is the input for listing channels.
type ListChannelsInput struct {
	AccountID  string `path:"account_id" doc:"Account ID (ULID)"`
	ActiveOnly bool   `query:"active_only" doc:"Only channels seen in the last sync"`
}

// ListChannelsOutput is the output for listing channels.
type ListChannelsOutput struct {
	Body struct {
		Channels []*models.Channel `json:"channels"`
	}
}

// ListByAccount returns an account's channels.
func (h *ChannelHandler) ListByAccount(ctx context.Context, input *ListChannelsInput) (*ListChannelsOutput, error) {
	accountID, err := models.ParseULID(input.AccountID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	var channels []*models.Channel
	if input.ActiveOnly {
		channels, err = h.channels.GetActiveByAccount(ctx, accountID)
	} else {
		channels, err = h.channels.GetByAccount(ctx, accountID)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list channels", err)
	}
	resp := &ListChannelsOutput{}
	resp.Body.Channels = channels
	return resp, nil
}

// GetChannelInput is the input for getting a channel.
type GetChannelInput struct {
	ID string `path:"id" doc:"Channel ID (ULID)"`
}

// GetChannelOutput is the output for getting a channel.
type GetChannelOutput struct {
	Body *models.Channel
}

// GetByID returns a channel by ID.
func (h *ChannelHandler) GetByID(ctx context.Context, input *GetChannelInput) (*GetChannelOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	channel, err := h.channels.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get channel", err)
	}
	if channel == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("channel %s not found", input.ID))
	}
	return &GetChannelOutput{Body: channel}, nil
}

// SetVisibilityInput is the input for setting visibility.
type SetVisibilityInput struct {
	ID   string `path:"id" doc:"Channel ID (ULID)"`
	Body struct {
		Visible bool `json:"visible"`
	}
}

// SetVisibilityOutput is the output for setting visibility.
type SetVisibilityOutput struct{}

// SetVisibility shows or hides one channel.
func (h *ChannelHandler) SetVisibility(ctx context.Context, input *SetVisibilityInput) (*SetVisibilityOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	if err := h.channels.SetVisibility(ctx, []models.ULID{id}, input.Body.Visible); err != nil {
		return nil, huma.Error500InternalServerError("failed to set visibility", err)
	}
	return &SetVisibilityOutput{}, nil
}

// GetChannelTagsInput is the input for getting channel tags.
type GetChannelTagsInput struct {
	ID string `path:"id" doc:"Channel ID (ULID)"`
}

// GetChannelTagsOutput is the output for getting channel tags.
type GetChannelTagsOutput struct {
	Body struct {
		Tags []string `json:"tags"`
	}
}

// GetTags returns the tag names extracted for a channel.
func (h *ChannelHandler) GetTags(ctx context.Context, input *GetChannelTagsInput) (*GetChannelTagsOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	channel, err := h.channels.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get channel", err)
	}
	if channel == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("channel %s not found", input.ID))
	}
	tags, err := h.tags.GetChannelTags(ctx, channel.AccountID, channel.ExternalStreamID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get tags", err)
	}
	resp := &GetChannelTagsOutput{}
	resp.Body.Tags = tags
	return resp, nil
}

// ListLinksInput is the input for listing links.
type ListLinksInput struct {
	ID string `path:"id" doc:"Channel ID (ULID)"`
}

// ListLinksOutput is the output for listing links.
type ListLinksOutput struct {
	Body struct {
		Links []*models.ChannelLink `json:"links"`
	}
}

// ListLinks returns the links originating from a channel.
func (h *ChannelHandler) ListLinks(ctx context.Context, input *ListLinksInput) (*ListLinksOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	links, err := h.links.GetByChannel(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list links", err)
	}
	resp := &ListLinksOutput{}
	resp.Body.Links = links
	return resp, nil
}

// CreateLinkInput is the input for creating a link.
type CreateLinkInput struct {
	ID   string `path:"id" doc:"Channel ID (ULID)"`
	Body struct {
		LinkedChannelID string `json:"linked_channel_id" doc:"Channel whose guide data is borrowed"`
		TimeOffsetHours int    `json:"time_offset_hours,omitempty" doc:"Added to the linked channel's programme times"`
	}
}

// CreateLinkOutput is the output for creating a link.
type CreateLinkOutput struct {
	Body *models.ChannelLink
}

// CreateLink links a channel to another channel's guide data.
func (h *ChannelHandler) CreateLink(ctx context.Context, input *CreateLinkInput) (*CreateLinkOutput, error) {
	channelID, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid channel ID format", err)
	}
	linkedID, err := models.ParseULID(input.Body.LinkedChannelID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid linked channel ID format", err)
	}
	if channelID == linkedID {
		return nil, huma.Error400BadRequest("a channel cannot link to itself")
	}
	linked, err := h.channels.GetByID(ctx, linkedID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get linked channel", err)
	}
	if linked == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("channel %s not found", input.Body.LinkedChannelID))
	}

	link := &models.ChannelLink{
		ChannelID:       channelID,
		LinkedChannelID: linkedID,
		TimeOffsetHours: input.Body.TimeOffsetHours,
	}
	if err := h.links.Create(ctx, link); err != nil {
		return nil, huma.Error400BadRequest("failed to create link", err)
	}
	return &CreateLinkOutput{Body: link}, nil
}

// DeleteLinkInput is the input for deleting a link.
type DeleteLinkInput struct {
	ID string `path:"id" doc:"Link ID (ULID)"`
}

// DeleteLinkOutput is the output for deleting a link.
type DeleteLinkOutput struct{}

// DeleteLink deletes a channel link.
func (h *ChannelHandler) DeleteLink(ctx context.Context, input *DeleteLinkInput) (*DeleteLinkOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	if err := h.links.Delete(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete link", err)
	}
	return &DeleteLinkOutput{}, nil
}
