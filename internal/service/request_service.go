// Package service contains the application's business logic, sitting
// between HTTP handlers and repositories.
package service

import (
	"context"
	"fmt"
	"time"

	"heartlink/internal/models"
	"heartlink/internal/notifications"
	"heartlink/internal/repository"
)

// RequestService drives the lifecycle of relationship requests: sending,
// reciprocal collapse, responding, and match room creation.
type RequestService struct {
	requestRepo repository.RequestRepository
	userRepo    repository.UserRepository
	chatRepo    repository.ChatRepository
	dispatcher  *notifications.Dispatcher
}

// NewRequestService returns a new RequestService.
func NewRequestService(
	requestRepo repository.RequestRepository,
	userRepo repository.UserRepository,
	chatRepo repository.ChatRepository,
	dispatcher *notifications.Dispatcher,
) *RequestService {
	return &RequestService{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		chatRepo:    chatRepo,
		dispatcher:  dispatcher,
	}
}

// SendRequest sends a relationship request from one user to another.
//
// If the target already has a pending request toward the sender, the two
// collapse: that request is accepted in place and a chat room opens, with
// no second row created. Any other existing edge between the pair, in
// either direction, rejects the call as a duplicate.
func (s *RequestService) SendRequest(ctx context.Context, fromID, toID uint, requestType int) (*models.Request, error) {
	if fromID == toID {
		return nil, models.NewValidationError("Cannot send a request to yourself")
	}

	target, err := s.userRepo.GetByID(ctx, toID)
	if err != nil {
		return nil, err
	}
	from, err := s.userRepo.GetByID(ctx, fromID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.requestRepo.GetBetween(ctx, fromID, toID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewDuplicateRequestError()
	}

	reverse, err := s.requestRepo.GetBetween(ctx, toID, fromID)
	if err != nil {
		return nil, err
	}
	if reverse != nil {
		if !reverse.Pending() {
			return nil, models.NewDuplicateRequestError()
		}
		// Reciprocal pending request: accept it in place instead of
		// creating a mirror row.
		return s.accept(ctx, reverse, from, target)
	}

	request := &models.Request{
		UserFromID:  fromID,
		UserToID:    toID,
		RequestType: requestType,
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	requestID := request.ID
	record := &models.AlertRecord{
		Type:      models.PushTypeRequest,
		UserID:    from.ID,
		RequestID: &requestID,
		Body:      fmt.Sprintf("%s sent you a request", from.NickName),
	}
	if err := s.dispatcher.NotifyAndPush(ctx, target, record); err != nil {
		return nil, err
	}

	return s.requestRepo.GetByID(ctx, request.ID)
}

// Respond records the recipient's answer to a request. Only the addressee
// may respond. Acceptance opens a chat room for the pair and notifies the
// requester; a decline records the answer and nothing else.
func (s *RequestService) Respond(ctx context.Context, userID, requestID uint, response int) (*models.Request, error) {
	if response != models.RequestAccepted && response != models.RequestDeclined {
		return nil, models.NewValidationError("Response must be 0 or 1")
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.UserToID != userID {
		return nil, models.NewForbiddenError("Only the request's recipient can respond")
	}

	if response == models.RequestDeclined {
		if err := s.requestRepo.SetResponse(ctx, request.ID, models.RequestDeclined, time.Now().Unix()); err != nil {
			return nil, err
		}
		return s.requestRepo.GetByID(ctx, request.ID)
	}

	acceptor, err := s.userRepo.GetByID(ctx, request.UserToID)
	if err != nil {
		return nil, err
	}
	requester, err := s.userRepo.GetByID(ctx, request.UserFromID)
	if err != nil {
		return nil, err
	}
	return s.accept(ctx, request, acceptor, requester)
}

// accept marks the request accepted, opens the pair's chat room, and sends
// the MATCHED alert to the original requester with the acceptor as actor.
func (s *RequestService) accept(ctx context.Context, request *models.Request, acceptor, requester *models.User) (*models.Request, error) {
	if err := s.requestRepo.SetResponse(ctx, request.ID, models.RequestAccepted, time.Now().Unix()); err != nil {
		return nil, err
	}

	room := &models.ChatRoom{
		Title:          fmt.Sprintf("%s, %s", requester.NickName, acceptor.NickName),
		Members:        []models.User{*requester, *acceptor},
		MembersHistory: []models.User{*requester, *acceptor},
	}
	if err := s.chatRepo.Create(ctx, room); err != nil {
		return nil, err
	}

	requestID := request.ID
	roomID := room.ID
	record := &models.AlertRecord{
		Type:       models.PushTypeMatched,
		UserID:     acceptor.ID,
		RequestID:  &requestID,
		ChatRoomID: &roomID,
		Body:       fmt.Sprintf("%s accepted your request", acceptor.NickName),
	}
	if err := s.dispatcher.NotifyAndPush(ctx, requester, record); err != nil {
		return nil, err
	}

	return s.requestRepo.GetByID(ctx, request.ID)
}

// GetReceived returns requests addressed to the user, newest first.
func (s *RequestService) GetReceived(ctx context.Context, userID uint) ([]models.Request, error) {
	return s.requestRepo.ListToUser(ctx, userID)
}

// GetSent returns requests the user has sent, newest first.
func (s *RequestService) GetSent(ctx context.Context, userID uint) ([]models.Request, error) {
	return s.requestRepo.ListFromUser(ctx, userID)
}
