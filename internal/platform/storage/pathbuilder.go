package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPermissionDenied is returned when an object lies outside the caller's prefix.
var ErrPermissionDenied = errors.New("storage: permission denied")

const (
	uploadsPrefix = "uploads"
	exportsPrefix = "exports"
)

// UploadPath is uploads/{uid}/{id}.{ext}.
func UploadPath(uid, id, ext string) (string, error) {
	uid, err := validateSegment("uid", uid)
	if err != nil {
		return "", err
	}
	id, err = validateSegment("id", id)
	if err != nil {
		return "", err
	}
	ext, err = validateSegment("ext", strings.TrimPrefix(ext, "."))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s.%s", uploadsPrefix, uid, id, strings.ToLower(ext)), nil
}

// ExportPath is exports/{uid}/{id}/{fileName}.
func ExportPath(uid, id, fileName string) (string, error) {
	uid, err := validateSegment("uid", uid)
	if err != nil {
		return "", err
	}
	id, err = validateSegment("id", id)
	if err != nil {
		return "", err
	}
	fileName, err = validateSegment("fileName", fileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s/%s", exportsPrefix, uid, id, fileName), nil
}

// AuthorizeObject allows uid to touch only objects under its own upload or
// export prefix.
func AuthorizeObject(uid, object string) error {
	if strings.TrimSpace(uid) == "" || strings.Contains(object, "..") {
		return ErrPermissionDenied
	}
	for _, prefix := range []string{uploadsPrefix, exportsPrefix} {
		if strings.HasPrefix(object, prefix+"/"+uid+"/") {
			return nil
		}
	}
	return ErrPermissionDenied
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return "", fmt.Errorf("storage: %s is required", name)
	case strings.ContainsAny(value, "/\\"):
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	case strings.Contains(value, ".."):
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}
