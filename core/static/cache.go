package static

import (
	"container/list"
	"os"
	"sync"
)

// FileCache keeps recently served files open so repeat hits skip the
// open/stat syscalls. Eviction is LRU. Cached handles are shared across
// requests; callers must not Close or Seek them, positioned reads only.
type FileCache struct {
	mu    sync.Mutex
	files map[string]*cachedFile
	order *list.List
	limit int
}

type cachedFile struct {
	file *os.File
	size int64
	elem *list.Element
}

// NewFileCache builds a cache holding at most limit open files.
func NewFileCache(limit int) *FileCache {
	return &FileCache{
		files: make(map[string]*cachedFile),
		order: list.New(),
		limit: limit,
	}
}

// Get returns an open handle and size for path, opening and caching it
// on first use.
func (fc *FileCache) Get(path string) (*os.File, int64, error) {
	fc.mu.Lock()
	if entry, ok := fc.files[path]; ok {
		fc.order.MoveToFront(entry.elem)
		fc.mu.Unlock()
		return entry.file, entry.size, nil
	}
	fc.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, err
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	// Lost a race with another opener; keep theirs.
	if entry, ok := fc.files[path]; ok {
		file.Close()
		fc.order.MoveToFront(entry.elem)
		return entry.file, entry.size, nil
	}

	entry := &cachedFile{file: file, size: info.Size()}
	entry.elem = fc.order.PushFront(path)
	fc.files[path] = entry

	for fc.order.Len() > fc.limit {
		oldest := fc.order.Back()
		oldPath := oldest.Value.(string)
		if old, ok := fc.files[oldPath]; ok {
			old.file.Close()
			delete(fc.files, oldPath)
		}
		fc.order.Remove(oldest)
	}

	return file, info.Size(), nil
}

// Len reports the number of cached handles.
func (fc *FileCache) Len() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.order.Len()
}

// Close releases every cached handle.
func (fc *FileCache) Close() {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	for _, entry := range fc.files {
		entry.file.Close()
	}
	fc.files = make(map[string]*cachedFile)
	fc.order.Init()
}
