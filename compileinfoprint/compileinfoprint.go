// compileinfoprint is imported for the side effect of printing the compileinfo
// to os.Stderr before main runs.
package compileinfoprint

import "github.com/carbocation/rilcoupling/compileinfo"

func init() {
	compileinfo.PrintToStdErr()
}
