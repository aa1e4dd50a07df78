package service

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"math/rand"
	"strings"
	"time"

	"heartlink/internal/geo"
	"heartlink/internal/models"
	"heartlink/internal/notifications"
	"heartlink/internal/repository"
	"heartlink/internal/storage"
)

// Discovery radii and result sizes.
const (
	realTimeRadiusMeters = 30_000.0
	realTimeLimit        = 5
	closeRadiusMeters    = 5_000.0
	closeLimit           = 4
	browseLimit          = 4
)

// highScoreFloor is the lowest score counted as a high rating when listing
// who rated me well.
const highScoreFloor = 4

// minAlertScore is the lowest star rating that still notifies the rated
// user. Ratings at or below it stay silent.
const minAlertScore = 3

// Profile fields a user may change about themselves.
var updatableProfileFields = map[string]bool{
	"nick_name":      true,
	"sex":            true,
	"birthed_at":     true,
	"height":         true,
	"body_id":        true,
	"occupation":     true,
	"education":      true,
	"religion_id":    true,
	"drink_id":       true,
	"smoking_id":     true,
	"blood_id":       true,
	"job":            true,
	"area":           true,
	"phone":          true,
	"introduction":   true,
	"charm_ids":      true,
	"ideal_type_ids": true,
	"interest_ids":   true,
}

// SessionView is the login payload: the user plus the id sets the client
// needs to grey out already-contacted profiles.
type SessionView struct {
	User             *models.User        `json:"user"`
	UserIDsRequested []uint              `json:"user_ids_requested"`
	UserIDsReceived  []uint              `json:"user_ids_received"`
	UserIDsMatched   []uint              `json:"user_ids_matched"`
	StarRatings      []models.StarRating `json:"star_ratings_i_rated"`
}

// UserService provides account, profile, discovery and rating logic.
type UserService struct {
	userRepo    repository.UserRepository
	requestRepo repository.RequestRepository
	ratingRepo  repository.RatingRepository
	alertRepo   repository.AlertRepository
	uploader    storage.Uploader
	images      *ImageService
	locator     geo.Locator
	dispatcher  *notifications.Dispatcher
}

// NewUserService returns a new UserService.
func NewUserService(
	userRepo repository.UserRepository,
	requestRepo repository.RequestRepository,
	ratingRepo repository.RatingRepository,
	alertRepo repository.AlertRepository,
	uploader storage.Uploader,
	locator geo.Locator,
	dispatcher *notifications.Dispatcher,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		requestRepo: requestRepo,
		ratingRepo:  ratingRepo,
		alertRepo:   alertRepo,
		uploader:    uploader,
		images:      NewImageService(),
		locator:     locator,
		dispatcher:  dispatcher,
	}
}

// Login returns the user for a verified uid, creating the account on first
// login with its alert container. Every login stamps last_login_at and,
// when the client IP resolves, refreshes the coarse location.
func (s *UserService) Login(ctx context.Context, uid, clientIP string) (*SessionView, error) {
	user, err := s.userRepo.GetByUID(ctx, uid)
	if err != nil {
		appErr, ok := err.(*models.AppError)
		if !ok || appErr.Code != "NOT_FOUND" {
			return nil, err
		}
		user = &models.User{UID: uid}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
		if _, err := s.alertRepo.GetOrCreate(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	fields := map[string]interface{}{"last_login_at": time.Now().Unix()}
	if s.locator != nil && clientIP != "" {
		if lng, lat, err := s.locator.Locate(ctx, clientIP); err == nil {
			fields["longitude"] = lng
			fields["latitude"] = lat
		}
	}
	if err := s.userRepo.UpdateFields(ctx, user.ID, fields); err != nil {
		return nil, err
	}

	user, err = s.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.buildSession(ctx, user)
}

func (s *UserService) buildSession(ctx context.Context, user *models.User) (*SessionView, error) {
	sent, err := s.requestRepo.ListFromUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	received, err := s.requestRepo.ListToUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	rated, err := s.ratingRepo.ListByFrom(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if rated == nil {
		rated = make([]models.StarRating, 0)
	}

	view := &SessionView{
		User:             user,
		UserIDsRequested: make([]uint, 0),
		UserIDsReceived:  make([]uint, 0),
		UserIDsMatched:   make([]uint, 0),
		StarRatings:      rated,
	}
	for i := range sent {
		if sent[i].Accepted() {
			view.UserIDsMatched = append(view.UserIDsMatched, sent[i].UserToID)
		} else if sent[i].Pending() {
			view.UserIDsRequested = append(view.UserIDsRequested, sent[i].UserToID)
		}
	}
	for i := range received {
		if received[i].Accepted() {
			view.UserIDsMatched = append(view.UserIDsMatched, received[i].UserFromID)
		} else if received[i].Pending() {
			view.UserIDsReceived = append(view.UserIDsReceived, received[i].UserFromID)
		}
	}
	return view, nil
}

// GetUser returns a user's profile.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// BrowseUsers returns the first few profiles for the browse screen.
func (s *UserService) BrowseUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.List(ctx, browseLimit, 0)
}

// RatedMeHigh returns the users who gave this user a high rating.
func (s *UserService) RatedMeHigh(ctx context.Context, userID uint) ([]models.User, error) {
	return s.ratingRepo.ListHighRaters(ctx, userID, highScoreFloor)
}

// UpdateProfile applies the given profile fields. Unknown or protected
// fields (uid, status, images, location) reject the whole update.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, fields map[string]interface{}) (*models.User, error) {
	if len(fields) == 0 {
		return nil, models.NewValidationError("No fields to update")
	}
	for name, value := range fields {
		if !updatableProfileFields[name] {
			return nil, models.NewValidationError(fmt.Sprintf("Field %q cannot be updated", name))
		}
		if str, ok := value.(string); ok {
			fields[name] = strings.TrimSpace(str)
		}
	}
	if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// UpdatePushToken stores the device token pushes are sent to.
func (s *UserService) UpdatePushToken(ctx context.Context, userID uint, token string) error {
	return s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{"push_token": token})
}

// UpdateLocation stores explicit coordinates, or resolves them from the
// client IP when none are given.
func (s *UserService) UpdateLocation(ctx context.Context, userID uint, lat, lng *float64, clientIP string) (*models.User, error) {
	if lat == nil || lng == nil {
		if s.locator == nil || clientIP == "" {
			return nil, models.NewValidationError("Coordinates are required")
		}
		resolvedLng, resolvedLat, err := s.locator.Locate(ctx, clientIP)
		if err != nil {
			return nil, models.NewValidationError("Could not resolve a location for this client")
		}
		lat, lng = &resolvedLat, &resolvedLng
	}
	fields := map[string]interface{}{"latitude": *lat, "longitude": *lng}
	if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// UploadImage stores the image into the pending slot at index and knocks
// the profile back to the opened state so it is reviewed again.
func (s *UserService) UploadImage(ctx context.Context, userID uint, index int, r io.Reader) (*models.User, error) {
	if index < 0 || index > 5 {
		return nil, models.NewValidationError("Image index must be between 0 and 5")
	}
	if s.uploader == nil {
		return nil, models.NewValidationError("Image uploads are not available")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	encoded, err := s.images.Normalize(r)
	if err != nil {
		return nil, err
	}
	url, err := s.uploader.Upload(ctx, "user_images", storage.ObjectName(user.UID, index)+".webp", bytes.NewReader(encoded))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if _, err := s.userRepo.ReplaceImage(ctx, userID, models.ImageStagePending, index, url); err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{"status": models.UserStatusOpened}); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// DeleteImage removes the pending image at index.
func (s *UserService) DeleteImage(ctx context.Context, userID uint, index int) (*models.User, error) {
	if err := s.userRepo.DeleteImage(ctx, userID, models.ImageStagePending, index); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// SubmitForReview moves an opened profile into the review queue.
func (s *UserService) SubmitForReview(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status != models.UserStatusOpened && user.Status != models.UserStatusRejected {
		return nil, models.NewValidationError("Profile is not in a submittable state")
	}
	if len(user.UserImagesTemp) == 0 && len(user.UserImages) == 0 {
		return nil, models.NewValidationError("Profile needs at least one image")
	}
	if err := s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{"status": models.UserStatusPending}); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// Approve passes a profile review: pending images replace the approved
// set and the profile becomes visible.
func (s *UserService) Approve(ctx context.Context, userID uint) (*models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.userRepo.PromotePendingImages(ctx, userID); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{
		"status":    models.UserStatusApproved,
		"available": true,
	}
	if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// Reject fails a profile review.
func (s *UserService) Reject(ctx context.Context, userID uint) (*models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{
		"status":    models.UserStatusRejected,
		"available": false,
	}
	if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// Poke taps another user. It is alert-only and unconditional: every poke
// appends and pushes again.
func (s *UserService) Poke(ctx context.Context, fromID, toID uint) error {
	if fromID == toID {
		return models.NewValidationError("Cannot poke yourself")
	}
	target, err := s.userRepo.GetByID(ctx, toID)
	if err != nil {
		return err
	}
	actor, err := s.userRepo.GetByID(ctx, fromID)
	if err != nil {
		return err
	}
	record := &models.AlertRecord{
		Type:   models.PushTypePoke,
		UserID: actor.ID,
		Body:   fmt.Sprintf("%s poked you", actor.NickName),
	}
	return s.dispatcher.NotifyAndPush(ctx, target, record)
}

// RateUser stores the star rating; the latest score per pair wins. The
// rated user is alerted only the first time the pair rates, and only when
// the score clears the alert threshold.
func (s *UserService) RateUser(ctx context.Context, fromID, toID uint, score int) (*models.StarRating, error) {
	if fromID == toID {
		return nil, models.NewValidationError("Cannot rate yourself")
	}
	if score < 1 || score > 5 {
		return nil, models.NewValidationError("Score must be between 1 and 5")
	}
	target, err := s.userRepo.GetByID(ctx, toID)
	if err != nil {
		return nil, err
	}
	actor, err := s.userRepo.GetByID(ctx, fromID)
	if err != nil {
		return nil, err
	}

	rating := &models.StarRating{
		UserFromID: fromID,
		UserToID:   toID,
		Score:      score,
		RatedAt:    time.Now().Unix(),
	}
	first, err := s.ratingRepo.Upsert(ctx, rating)
	if err != nil {
		return nil, err
	}

	if first && score > minAlertScore {
		record := &models.AlertRecord{
			Type:   models.PushTypeStarRating,
			UserID: actor.ID,
			Body:   fmt.Sprintf("%s rated you %d stars", actor.NickName, score),
		}
		if err := s.dispatcher.NotifyAndPush(ctx, target, record); err != nil {
			return nil, err
		}
	}
	return s.ratingRepo.GetPair(ctx, fromID, toID)
}

// GetRatings returns the ratings the user has given, newest first.
func (s *UserService) GetRatings(ctx context.Context, userID uint) ([]models.StarRating, error) {
	return s.ratingRepo.ListByFrom(ctx, userID)
}

// NearbyRealTime returns up to five recently active users within thirty
// kilometers of the caller.
func (s *UserService) NearbyRealTime(ctx context.Context, userID uint) ([]models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Latitude == nil || user.Longitude == nil {
		return nil, models.NewValidationError("Set your location first")
	}
	found, err := s.userRepo.Nearby(ctx, *user.Latitude, *user.Longitude, realTimeRadiusMeters, realTimeLimit+1)
	if err != nil {
		return nil, err
	}
	return dropSelf(found, userID, realTimeLimit), nil
}

// NearbyClose returns up to four users within five kilometers. The pick is
// shuffled with a seed derived from the caller and the current day, so the
// same caller sees a stable set all day and a fresh one tomorrow.
func (s *UserService) NearbyClose(ctx context.Context, userID uint) ([]models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Latitude == nil || user.Longitude == nil {
		return nil, models.NewValidationError("Set your location first")
	}
	found, err := s.userRepo.Nearby(ctx, *user.Latitude, *user.Longitude, closeRadiusMeters, 0)
	if err != nil {
		return nil, err
	}
	candidates := dropSelf(found, userID, 0)

	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%s", userID, time.Now().Format("2006-01-02"))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	if len(candidates) > closeLimit {
		candidates = candidates[:closeLimit]
	}
	return candidates, nil
}

// dropSelf filters the caller out and truncates to limit (0 for no limit).
func dropSelf(users []models.User, selfID uint, limit int) []models.User {
	out := make([]models.User, 0, len(users))
	for i := range users {
		if users[i].ID == selfID {
			continue
		}
		out = append(out, users[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
