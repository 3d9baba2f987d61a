package member

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/damins0406/lets-study-now/internal/auth"
	"github.com/damins0406/lets-study-now/pkg/httputil"
	"github.com/damins0406/lets-study-now/pkg/password"
)

const maxAvatarSize = 5 << 20 // 5 MiB

// ImageStore is the object storage the profile image lives in
type ImageStore interface {
	UploadProfileImage(ctx context.Context, memberID uuid.UUID, reader io.Reader, size int64, contentType string) (string, error)
	GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	DeleteProfileImage(ctx context.Context, objectName string) error
}

type Handler struct {
	store      Store
	jwtService *auth.Service
	images     ImageStore
	log        *slog.Logger
	dbTimeout  time.Duration
}

func NewHandler(store Store, jwtService *auth.Service, images ImageStore, log *slog.Logger, dbTimeout time.Duration) *Handler {
	if dbTimeout == 0 {
		dbTimeout = time.Second * 5
	}
	return &Handler{store, jwtService, images, log, dbTimeout}
}

func (h *Handler) RegisterAuthRoutes(r chi.Router) {
	r.Post("/signup", httputil.Handler(h.HandleSignup, h.log))
	r.Post("/signin", httputil.Handler(h.HandleSignin, h.log))
	r.Post("/refresh", httputil.Handler(h.HandleRefreshToken, h.log))
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", httputil.Handler(h.HandleGetMe, h.log))
	r.Patch("/me", httputil.Handler(h.HandleUpdateProfile, h.log))
	r.Post("/me/password", httputil.Handler(h.HandleChangePassword, h.log))
	r.Delete("/me", httputil.Handler(h.HandleDeleteAccount, h.log))
	r.Post("/me/avatar", httputil.Handler(h.HandleUploadAvatar, h.log))
	r.Get("/{memberID}/avatar", httputil.Handler(h.HandleGetAvatar, h.log))
}

func (h *Handler) dbCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.dbTimeout)
}

// HandleSignup registers a new member
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) error {
	req := new(SignupRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	if err := validateSignupRequest(req); err != nil {
		return httputil.BadRequest(err.Error())
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	taken, err := h.store.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return httputil.Internal(err)
	}
	if taken {
		return httputil.Conflict("Email already registered")
	}

	taken, err = h.store.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return httputil.Internal(err)
	}
	if taken {
		return httputil.Conflict("Username already taken")
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return httputil.Internal(err)
	}

	member := &Member{
		Email:    req.Email,
		Username: req.Username,
		Password: hashed,
	}

	if err := h.store.CreateMember(ctx, member); err != nil {
		h.log.Error("failed to create member", "email", req.Email, "error", err)
		return httputil.Internal(err)
	}

	h.log.Info("member registered", "member_id", member.ID, "username", member.Username)

	return h.respondTokens(w, http.StatusCreated, member)
}

// HandleSignin authenticates a member by email and password
func (h *Handler) HandleSignin(w http.ResponseWriter, r *http.Request) error {
	req := new(SigninRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	member, err := h.store.GetMemberByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return httputil.Unauthorized("Invalid email or password")
		}
		return httputil.Internal(err)
	}

	if !password.Verify(req.Password, member.Password) {
		h.log.Warn("signin rejected - wrong password", "member_id", member.ID)
		return httputil.Unauthorized("Invalid email or password")
	}

	h.log.Info("member signed in", "member_id", member.ID)

	return h.respondTokens(w, http.StatusOK, member)
}

// HandleRefreshToken exchanges a refresh token for a new token pair
func (h *Handler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) error {
	req := new(RefreshRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	memberID, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return httputil.Unauthorized("Invalid refresh token")
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	member, err := h.store.GetMemberByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return httputil.Unauthorized("Member no longer exists")
		}
		return httputil.Internal(err)
	}

	return h.respondTokens(w, http.StatusOK, member)
}

func (h *Handler) respondTokens(w http.ResponseWriter, status int, member *Member) error {
	accessToken, err := h.jwtService.GenerateAccessToken(member.ID, member.Email, member.Username)
	if err != nil {
		return httputil.Internal(err)
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(member.ID)
	if err != nil {
		return httputil.Internal(err)
	}

	return httputil.RespondJSON(w, status, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Member:       member,
	})
}

// HandleGetMe returns the authenticated member's profile
func (h *Handler) HandleGetMe(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	member, err := h.store.GetMemberByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return httputil.NotFound("Member not found")
		}
		return httputil.Internal(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, member)
}

// HandleUpdateProfile updates bio and study field
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	req := new(UpdateProfileRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	if err := validateProfileUpdate(req); err != nil {
		return httputil.BadRequest(err.Error())
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	member, err := h.store.GetMemberByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return httputil.NotFound("Member not found")
		}
		return httputil.Internal(err)
	}

	if req.Bio != nil {
		member.Bio = *req.Bio
	}
	if req.StudyField != nil {
		member.StudyField = *req.StudyField
	}

	if err := h.store.UpdateMember(ctx, member); err != nil {
		return httputil.Internal(err)
	}

	h.log.Info("profile updated", "member_id", memberID)

	return httputil.RespondJSON(w, http.StatusOK, member)
}

// HandleChangePassword verifies the current password and sets a new one
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	req := new(ChangePasswordRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	if err := validatePassword(req.NewPassword); err != nil {
		return httputil.BadRequest("invalid new password: " + err.Error())
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	member, err := h.store.GetMemberByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return httputil.NotFound("Member not found")
		}
		return httputil.Internal(err)
	}

	if !password.Verify(req.CurrentPassword, member.Password) {
		return httputil.Forbidden("Current password does not match")
	}

	hashed, err := password.Hash(req.NewPassword)
	if err != nil {
		return httputil.Internal(err)
	}
	member.Password = hashed

	if err := h.store.UpdateMember(ctx, member); err != nil {
		return httputil.Internal(err)
	}

	h.log.Info("password changed", "member_id", memberID)

	return httputil.RespondJSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
}

// HandleDeleteAccount soft-deletes the authenticated member
func (h *Handler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.store.SoftDeleteMember(ctx, memberID); err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return httputil.NotFound("Member not found")
		}
		return httputil.Internal(err)
	}

	h.log.Info("member deleted", "member_id", memberID)

	return httputil.RespondJSON(w, http.StatusNoContent, map[string]string{"message": "Account deleted"})
}

// HandleUploadAvatar stores a profile image in object storage
func (h *Handler) HandleUploadAvatar(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		return httputil.BadRequest("Invalid multipart form")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return httputil.BadRequest("image file is required")
	}
	defer file.Close()

	if header.Size > maxAvatarSize {
		return httputil.BadRequest("Image too large")
	}

	contentType := header.Header.Get("Content-Type")
	switch contentType {
	case "image/jpeg", "image/png", "image/webp":
	default:
		return httputil.BadRequest("Unsupported image type", map[string]string{"content_type": contentType})
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	objectName, err := h.images.UploadProfileImage(ctx, memberID, file, header.Size, contentType)
	if err != nil {
		h.log.Error("failed to upload profile image", "member_id", memberID, "error", err)
		return httputil.Internal(err)
	}

	if err := h.store.UpdateProfileImage(ctx, memberID, objectName); err != nil {
		return httputil.Internal(err)
	}

	h.log.Info("profile image uploaded", "member_id", memberID, "object", objectName)

	return httputil.RespondJSON(w, http.StatusOK, map[string]string{"profile_image": objectName})
}

// HandleGetAvatar returns a presigned URL for a member's profile image
func (h *Handler) HandleGetAvatar(w http.ResponseWriter, r *http.Request) error {
	targetID, err := httputil.ParseUUID(r, "memberID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	member, err := h.store.GetMemberByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return httputil.NotFound("Member not found")
		}
		return httputil.Internal(err)
	}

	if member.ProfileImage == "" {
		return httputil.NotFound("Member has no profile image")
	}

	url, err := h.images.GetPresignedURL(ctx, member.ProfileImage, time.Minute*15)
	if err != nil {
		return httputil.Internal(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]string{"url": url})
}
