package storage

// BlobStorage is the contract for persisting generated creative images. The
// generation flow accepts either a vendor CDN URL or a storage-backed URL
// interchangeably; UploadImage returns the public URL of the stored asset.
type BlobStorage interface {
	UploadImage(filename string, data []byte, contentType string) (string, error)
	Retrieve(filename string) ([]byte, error)
	List(prefix string) ([]string, error)
	Delete(filename string) error
}
