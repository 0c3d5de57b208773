package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"siteplanner/internal/logging"
)

// publicRootDir is served at /public. Tests point it at a temp dir.
var publicRootDir = "public"

const maxImageSize = 5 << 20

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".pdf":  {},
}

// saveImage stores an upload under public/uploads/<folder> and returns the
// slash-separated path relative to the public root.
func saveImage(file *multipart.FileHeader, folder string) (string, error) {
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" {
		return "", fmt.Errorf("image file extension is required")
	}
	if _, ok := allowedImageExtensions[extension]; !ok {
		return "", fmt.Errorf("unsupported image type: %s", extension)
	}
	if file.Size > maxImageSize {
		return "", fmt.Errorf("image file too large (max 5MB)")
	}

	filename := primitive.NewObjectID().Hex() + extension
	dir := filepath.Join(publicRootDir, "uploads", folder)
	entry := logging.Area("UPLOAD").WithField("dir", dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		entry.WithError(err).Error("failed to create directory")
		return "", err
	}

	fullPath := filepath.Join(dir, filename)
	out, err := os.Create(fullPath)
	if err != nil {
		entry.WithError(err).Error("failed to create file")
		return "", err
	}
	defer out.Close()

	in, err := file.Open()
	if err != nil {
		entry.WithError(err).Error("failed to open upload")
		return "", err
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		entry.WithError(err).Error("failed to save file")
		return "", err
	}

	return path.Join("uploads", folder, filename), nil
}

func safeDeleteUpload(relPath string) error {
	trimmed := strings.TrimSpace(relPath)
	if trimmed == "" {
		return nil
	}

	cleanRel := path.Clean("/" + strings.TrimPrefix(trimmed, "/"))
	cleanRel = strings.TrimPrefix(cleanRel, "/")

	if !strings.HasPrefix(cleanRel, "uploads/") {
		return fmt.Errorf("refusing to delete non-upload path: %s", relPath)
	}

	cleanBase, err := filepath.Abs(publicRootDir)
	if err != nil {
		return err
	}
	cleanTarget := filepath.Clean(filepath.Join(cleanBase, filepath.FromSlash(cleanRel)))
	if !strings.HasPrefix(cleanTarget, cleanBase+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to delete path outside public root: %s", relPath)
	}

	if err := os.Remove(cleanTarget); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return nil
}
