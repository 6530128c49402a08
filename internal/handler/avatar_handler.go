/*
Package handler provides the HTTP handlers for avatar storage.

Avatar bytes never travel through the package engine. A client either
requests a presigned URL and uploads directly to the bucket, or posts
the file to the upload endpoint which streams it through. Either way it
then announces the new avatar over the protocol with a SET_AVATAR
package.
*/
package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"neochat/internal/app/storage"
	"neochat/internal/pkg/auth/jwt"
	"neochat/internal/pkg/errs"
	"neochat/internal/pkg/req"
	"neochat/internal/pkg/resp"
)

// MaxAvatarSize bounds avatar uploads.
const MaxAvatarSize = 2 << 20

// avatarKeyPrefix namespaces avatar objects in the bucket.
const avatarKeyPrefix = "avatars/"

// avatarMimeTypes maps the accepted avatar extensions to their MIME type.
var avatarMimeTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// PresignAvatarInput defines the JSON input structure for generating an upload URL.
type PresignAvatarInput struct {
	Extension string `json:"extension"`
	FileSize  int64  `json:"file_size"`
}

// avatarKey builds the bucket key of a user's avatar. One object per
// user: a replaced avatar overwrites the previous one.
func avatarKey(userID, ext string) string {
	return fmt.Sprintf("%s%s.%s", avatarKeyPrefix, userID, ext)
}

// validateAvatar checks the extension and size of an avatar upload,
// returning the MIME type on success.
func validateAvatar(ext string, size int64) (string, *errs.CustomError) {
	mimeType, ok := avatarMimeTypes[strings.ToLower(ext)]
	if !ok {
		return "", errs.New(errs.ErrAvatarTypeInvalid)
	}
	if size <= 0 || size > MaxAvatarSize {
		return "", errs.New(errs.ErrAvatarTooLarge)
	}
	return mimeType, nil
}

// HandlePresignAvatarUpload creates an HTTP HandlerFunc to generate a
// time-limited, pre-signed URL for uploading the caller's avatar.
func HandlePresignAvatarUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.New(errs.ErrUnauthorized))
			return
		}

		var input PresignAvatarInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		mimeType, customErr := validateAvatar(input.Extension, input.FileSize)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		key := avatarKey(payload.ID, strings.ToLower(input.Extension))

		url, err := deps.Storage.PresignUpload(r.Context(), key, mimeType, input.FileSize, storage.PresignedURLDuration)
		if err != nil {
			resp.RespondError(w, r, errs.New(errs.ErrFileStorageFailed))
			return
		}

		data := map[string]any{
			"presignedUrl": url,
			"fileKey":      key,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandlePresignAvatarDownload creates an HTTP HandlerFunc to generate a
// time-limited, pre-signed URL for fetching an avatar object.
func HandlePresignAvatarDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.New(errs.ErrUnauthorized))
			return
		}

		fileKey := r.URL.Query().Get("k")
		if fileKey == "" || !strings.HasPrefix(fileKey, avatarKeyPrefix) {
			resp.RespondError(w, r, errs.New(errs.ErrInvalidParams))
			return
		}

		url, err := deps.Storage.PresignDownload(r.Context(), fileKey, storage.PresignedURLDuration)
		if err != nil {
			resp.RespondError(w, r, errs.New(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}

// HandleAvatarUpload creates an HTTP HandlerFunc that accepts a
// multipart avatar upload and streams it into the bucket on behalf of
// the caller, for clients that cannot use presigned URLs directly.
func HandleAvatarUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.New(errs.ErrUnauthorized))
			return
		}

		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		file, header, err := r.FormFile("avatar")
		if err != nil {
			resp.RespondError(w, r, errs.New(errs.ErrInvalidParams))
			return
		}
		defer file.Close()

		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
		mimeType, customErr := validateAvatar(ext, header.Size)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		key := avatarKey(payload.ID, ext)
		if err := deps.Storage.Upload(r.Context(), key, mimeType, file); err != nil {
			resp.RespondError(w, r, errs.New(errs.ErrFileStorageFailed))
			return
		}

		data := map[string]any{
			"fileKey":   key,
			"extension": ext,
		}
		resp.RespondSuccess(w, r, data)
	}
}
