package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("UNIVERA_TEST_MODE") == "" {
			_ = os.Setenv("UNIVERA_TEST_MODE", "1")
		}
	})
}
