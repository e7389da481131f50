package cache

// RequestCacher keeps a short, per-key trail of recent requests so admins
// can inspect member activity.
type RequestCacher interface {
	Write(key string, value []byte) error
	Read(key string) ([]string, error)
}
