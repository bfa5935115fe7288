package domain

// UploadFile describes a file picked by the user. Content is never read.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
}
