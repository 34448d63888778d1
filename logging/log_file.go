package logging

import (
	"os"
	"strconv"
	"time"

	"github.com/casks-mutters/state-delta-audit/utils"
)

// CreateLogFile creates a structured log file named "log-<unix timestamp>.log" within the provided directory,
// creating the directory if needed. Callers are responsible for closing the file.
func CreateLogFile(logDirectory string) (*os.File, error) {
	filename := "log-" + strconv.FormatInt(time.Now().Unix(), 10) + ".log"
	return utils.CreateFile(logDirectory, filename)
}
