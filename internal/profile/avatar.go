package profile

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/asteroid-belt/kisan/internal/log"
	"github.com/asteroid-belt/kisan/internal/remote"
)

// AvatarBucket is the public storage bucket for profile pictures.
const AvatarBucket = "avatars"

var now = time.Now

// AvatarResult describes where the new avatar ended up.
type AvatarResult struct {
	URL string `json:"avatar_url"`
	// Fallback is set when storage rejected the upload and the profile now
	// points at the local file instead.
	Fallback bool `json:"fallback,omitempty"`
}

// AvatarObjectPath is the storage path for a new avatar of userID.
func AvatarObjectPath(userID, file string, at time.Time) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s/avatar_%d.%s", userID, at.UnixMilli(), ext)
}

// UploadAvatar uploads file to the avatars bucket and points
// profiles.avatar_url at it. If storage fails the local file URI is saved
// instead.
func (s *Service) UploadAvatar(ctx context.Context, file string) (AvatarResult, error) {
	uid := s.Client.UserID()
	if uid == "" {
		return AvatarResult{}, remote.ErrNoSession
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return AvatarResult{}, fmt.Errorf("resolve avatar path: %w", err)
	}
	f, err := os.Open(abs)
	if err != nil {
		return AvatarResult{}, fmt.Errorf("open avatar: %w", err)
	}
	defer func() { _ = f.Close() }()

	objectPath := AvatarObjectPath(uid, abs, now())
	contentType := mime.TypeByExtension(filepath.Ext(abs))
	if contentType == "" {
		contentType = "image/" + strings.TrimPrefix(filepath.Ext(objectPath), ".")
	}

	res := AvatarResult{}
	if err := s.Client.Upload(ctx, AvatarBucket, objectPath, contentType, f); err != nil {
		log.Warnf("avatar upload failed, using local file: %v", err)
		res.URL = "file://" + filepath.ToSlash(abs)
		res.Fallback = true
	} else {
		res.URL = s.Client.PublicURL(AvatarBucket, objectPath)
	}

	_, err = s.Client.Update(ctx, "profiles", map[string]string{"avatar_url": res.URL}, []remote.Filter{remote.Eq("id", uid)})
	if err != nil {
		return res, fmt.Errorf("save avatar url: %w", err)
	}
	return res, nil
}
