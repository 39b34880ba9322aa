package http

import (
	"context"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"announcements/app/internal/data/database"
	"announcements/app/internal/domain/announcements"
	"announcements/app/internal/domain/permission"
	"announcements/app/internal/platform/timestamp"
	"announcements/app/internal/search"
)

const (
	announcementsTag = "announcements"
	categoriesTag    = "categories"
)

type listInput struct {
	Max         int    `query:"max" minimum:"1" maximum:"100" doc:"Page size, defaults to the configured page size"`
	Page        int    `query:"page" minimum:"1" doc:"1-based page number"`
	Category    string `query:"category" doc:"Category slug"`
	StickyFirst bool   `query:"sticky_first" doc:"Order sticky announcements first"`
}

type listOutput struct {
	Body listBody
}

type idInput struct {
	ID string `path:"id"`
}

type announcementOutput struct {
	Body announcementBody
}

type createAnnouncementInput struct {
	Authorization string `header:"Authorization"`
	Body          announcementPayload
}

type updateAnnouncementInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id"`
	Body          announcementPayload
}

type deleteAnnouncementInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id"`
}

type unseenInput struct {
	Since string `query:"since" doc:"Timestamp of the last visit; empty means never"`
	Max   int    `query:"max" minimum:"1" maximum:"100"`
}

type categoriesOutput struct {
	Body []categoryBody
}

type createCategoryInput struct {
	Authorization string `header:"Authorization"`
	Body          struct {
		Title string `json:"title,omitempty"`
	}
}

type categoryOutput struct {
	Body categoryBody
}

type searchOutput struct {
	Body []search.Document
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerAnnouncementRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-announcements",
		Method:      stdhttp.MethodGet,
		Path:        "/api/announcements",
		Summary:     "List announcements",
		Tags:        []string{announcementsTag},
	}, s.listAnnouncementsHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-unseen-announcements",
		Method:      stdhttp.MethodGet,
		Path:        "/api/announcements/unseen",
		Summary:     "List announcements newer than the last visit",
		Tags:        []string{announcementsTag},
		Errors:      []int{stdhttp.StatusBadRequest},
	}, s.unseenHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-announcement",
		Method:      stdhttp.MethodGet,
		Path:        "/api/announcements/{id}",
		Summary:     "Fetch one announcement",
		Tags:        []string{announcementsTag},
		Errors:      []int{stdhttp.StatusNotFound},
	}, s.getAnnouncementHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-announcement",
		Method:        stdhttp.MethodPost,
		Path:          "/api/announcements",
		Summary:       "Publish an announcement",
		Tags:          []string{announcementsTag},
		DefaultStatus: stdhttp.StatusCreated,
		Errors:        []int{stdhttp.StatusBadRequest, stdhttp.StatusUnauthorized, stdhttp.StatusForbidden},
	}, s.createAnnouncementHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-announcement",
		Method:      stdhttp.MethodPut,
		Path:        "/api/announcements/{id}",
		Summary:     "Edit an announcement",
		Tags:        []string{announcementsTag},
		Errors:      []int{stdhttp.StatusBadRequest, stdhttp.StatusUnauthorized, stdhttp.StatusForbidden, stdhttp.StatusNotFound},
	}, s.updateAnnouncementHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-announcement",
		Method:        stdhttp.MethodDelete,
		Path:          "/api/announcements/{id}",
		Summary:       "Delete an announcement",
		Tags:          []string{announcementsTag},
		DefaultStatus: stdhttp.StatusNoContent,
		Errors:        []int{stdhttp.StatusUnauthorized, stdhttp.StatusForbidden, stdhttp.StatusNotFound},
	}, s.deleteAnnouncementHandler)
}

func (s *Server) registerCategoryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-categories",
		Method:      stdhttp.MethodGet,
		Path:        "/api/categories",
		Summary:     "List categories",
		Tags:        []string{categoriesTag},
	}, s.listCategoriesHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-category",
		Method:        stdhttp.MethodPost,
		Path:          "/api/categories",
		Summary:       "Create a category",
		Tags:          []string{categoriesTag},
		DefaultStatus: stdhttp.StatusCreated,
		Errors:        []int{stdhttp.StatusBadRequest, stdhttp.StatusUnauthorized, stdhttp.StatusForbidden, stdhttp.StatusConflict},
	}, s.createCategoryHandler)
}

func (s *Server) registerSearchRoute() {
	huma.Get(s.api, "/api/search/announcements", s.searchHandler, func(op *huma.Operation) {
		op.Summary = "Collate announcements for a search index"
	})
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) listAnnouncementsHandler(ctx context.Context, input *listInput) (*listOutput, error) {
	filter := announcements.ListFilter{
		Max:         input.Max,
		Page:        input.Page,
		Category:    input.Category,
		StickyFirst: input.StickyFirst,
	}

	list, err := s.service.ListAnnouncements(ctx, filter)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "listing announcements", logrus.Fields{"category": filter.Category, "page": filter.Page})
	}

	return &listOutput{Body: listBody{Count: list.Count, Results: toAnnouncementBodies(list.Results)}}, nil
}

func (s *Server) getAnnouncementHandler(ctx context.Context, input *idInput) (*announcementOutput, error) {
	announcement, err := s.service.GetAnnouncement(ctx, input.ID)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "fetching announcement", logrus.Fields{"announcement_id": input.ID})
	}

	return &announcementOutput{Body: toAnnouncementBody(announcement)}, nil
}

func (s *Server) createAnnouncementHandler(ctx context.Context, input *createAnnouncementInput) (*announcementOutput, error) {
	if err := s.authorize(ctx, input.Authorization, permission.AnnouncementCreate); err != nil {
		return nil, err
	}

	announcement, err := s.service.CreateAnnouncement(ctx, input.Body.input())
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "creating announcement", nil)
	}

	return &announcementOutput{Body: toAnnouncementBody(announcement)}, nil
}

func (s *Server) updateAnnouncementHandler(ctx context.Context, input *updateAnnouncementInput) (*announcementOutput, error) {
	if err := s.authorize(ctx, input.Authorization, permission.AnnouncementUpdate); err != nil {
		return nil, err
	}

	announcement, err := s.service.UpdateAnnouncement(ctx, input.ID, input.Body.input())
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "updating announcement", logrus.Fields{"announcement_id": input.ID})
	}

	return &announcementOutput{Body: toAnnouncementBody(announcement)}, nil
}

func (s *Server) deleteAnnouncementHandler(ctx context.Context, input *deleteAnnouncementInput) (*struct{}, error) {
	if err := s.authorize(ctx, input.Authorization, permission.AnnouncementDelete); err != nil {
		return nil, err
	}

	if err := s.service.DeleteAnnouncement(ctx, input.ID); err != nil {
		return nil, s.toHTTPError(ctx, err, "deleting announcement", logrus.Fields{"announcement_id": input.ID})
	}

	return &struct{}{}, nil
}

func (s *Server) unseenHandler(ctx context.Context, input *unseenInput) (*listOutput, error) {
	var lastSeen time.Time
	if since := strings.TrimSpace(input.Since); since != "" {
		parsed, err := timestamp.Decode(since)
		if err != nil {
			return nil, huma.Error400BadRequest("since must be an ISO-8601 or SQL timestamp", err)
		}
		lastSeen = parsed
	}

	unseen, err := s.service.Unseen(ctx, lastSeen, input.Max)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "listing unseen announcements", nil)
	}

	return &listOutput{Body: listBody{Count: int64(len(unseen)), Results: toAnnouncementBodies(unseen)}}, nil
}

func (s *Server) listCategoriesHandler(ctx context.Context, _ *struct{}) (*categoriesOutput, error) {
	categories, err := s.service.ListCategories(ctx)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "listing categories", nil)
	}

	bodies := make([]categoryBody, 0, len(categories))
	for _, category := range categories {
		bodies = append(bodies, toCategoryBody(category))
	}

	return &categoriesOutput{Body: bodies}, nil
}

func (s *Server) createCategoryHandler(ctx context.Context, input *createCategoryInput) (*categoryOutput, error) {
	if err := s.authorize(ctx, input.Authorization, permission.CategoryCreate); err != nil {
		return nil, err
	}

	category, err := s.service.CreateCategory(ctx, input.Body.Title)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "creating category", logrus.Fields{"title": input.Body.Title})
	}

	return &categoryOutput{Body: toCategoryBody(category)}, nil
}

func (s *Server) searchHandler(ctx context.Context, _ *struct{}) (*searchOutput, error) {
	documents, err := s.collator.Collect(ctx)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "collating announcements", nil)
	}

	return &searchOutput{Body: documents}, nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{Status: stdhttp.StatusOK}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	if err := database.Ping(ctx, s.db); err != nil {
		s.recordError(ctx, err, "pinging database", nil)
		resp.Status = stdhttp.StatusServiceUnavailable
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
	}

	return resp, nil
}
