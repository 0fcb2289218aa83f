package handlers

import (
	"os"
	"path/filepath"
	"strings"
)

// uploadRoot is where uploaded images live on disk; served under /public.
var uploadRoot = "./public"

func SetUploadRoot(root string) {
	if root != "" {
		uploadRoot = root
	}
}

// safeDeleteUpload removes a previously uploaded file given its public URL
// path, along with the _thumb sibling written next to cover images. Paths
// outside the upload root are ignored so a crafted imageUrl can never delete
// arbitrary files.
func safeDeleteUpload(publicPath string) {
	publicPath = strings.TrimSpace(publicPath)
	if publicPath == "" || !strings.HasPrefix(publicPath, "/public/") {
		return
	}

	rel := strings.TrimPrefix(publicPath, "/public/")
	cleaned := filepath.Clean(rel)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return
	}

	full := filepath.Join(uploadRoot, cleaned)
	os.Remove(full)

	if ext := filepath.Ext(full); ext != "" {
		os.Remove(strings.TrimSuffix(full, ext) + "_thumb" + ext)
	}
}
