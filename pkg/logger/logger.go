package logger

import (
	"log"
	"os"
)

// Init configures the standard logger used by every service binary.
func Init() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
}
