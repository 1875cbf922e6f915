package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SEKOLAH_TEST_MODE") == "" {
			_ = os.Setenv("SEKOLAH_TEST_MODE", "1")
		}
	})
}
