package cv

import "time"

// FileResponse is the outward-facing representation of a CV.
type FileResponse struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	FileSize   int64     `json:"fileSize"`
	MimeType   string    `json:"mimeType"`
	UploadedAt time.Time `json:"uploadedAt"`
	FileURL    string    `json:"fileUrl"`
}

func toResponse(f File) FileResponse {
	return FileResponse{
		ID:         f.ID,
		FileName:   f.FileName,
		FileSize:   f.FileSize,
		MimeType:   f.MimeType,
		UploadedAt: f.UploadedAt,
		FileURL:    f.FileURL,
	}
}

type progressEvent struct {
	Percent int `json:"percent"`
}
