/*package warn contains simple functions for reporting non-fatal
snapfields conditions. Unlike a hard FormatError, nothing reported
here stops a file from being read: Infof narrates schema decisions
and Warnf flags soft configuration inconsistencies the library
tolerates.
*/
package warn

import (
	"log"
)

// Infof reports an informational message. It has the same signature
// as the standard fmt.*printf() functions.
func Infof(format string, a ...interface{}) {
	log.Printf(format, a...)
}

// Warnf reports a soft inconsistency that was worked around rather
// than fixed. It has the same signature as the standard fmt.*printf()
// functions.
func Warnf(format string, a ...interface{}) {
	log.Printf("warning: "+format, a...)
}
