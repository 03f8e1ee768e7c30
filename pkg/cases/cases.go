// Package cases holds the built-in visual regression suite for the
// terminal emulator: the vttest menu walks and the line wrapping matrix.
//
// Reference screenshots live under a single root directory, laid out as
// vttest/<test>.sh.ghostty.png for the vttest family and
// wraptest.sh.ghostty.png for the wrap matrix.
package cases

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/devicelab-dev/pixelrunner/pkg/scenario"
)

// menuSettle is the pause between vttest menu navigation steps, long
// enough for the redraw to finish on slow emulators.
const menuSettle = 500 * time.Millisecond

// menu1Descriptions names the subtests reached through vttest menu
// option 1, the VT100 display tests.
var menu1Descriptions = map[int]string{
	1: "VT Test - Cursor movements (test 1)",
	2: "VT Test - Screen features (test 1.2)",
	3: "VT Test - Character sets (test 1.3)",
	4: "VT Test - Double-sized characters (test 1.4)",
	5: "VT Test - Keyboard test (test 1.5)",
	6: "VT Test - Terminal reports (test 1.6)",
}

// All returns the complete built-in suite in run order. referenceDir is
// the root of the reference screenshots.
func All(referenceDir string) []*scenario.TestCase {
	tests := []*scenario.TestCase{VTTestLaunch(referenceDir)}
	for sub := 1; sub <= len(menu1Descriptions); sub++ {
		tests = append(tests, VTTestMenu1(referenceDir, sub))
	}
	tests = append(tests, WrapTest(referenceDir))
	return tests
}

// Names returns the names of the built-in cases in run order.
func Names() []string {
	all := All("")
	names := make([]string, 0, len(all))
	for _, tc := range all {
		names = append(names, tc.Name)
	}
	return names
}

// ByName returns the named built-in case, or nil if no such case exists.
func ByName(referenceDir, name string) *scenario.TestCase {
	for _, tc := range All(referenceDir) {
		if tc.Name == name {
			return tc
		}
	}
	return nil
}

// VTTestLaunch starts vttest and captures its main menu.
func VTTestLaunch(referenceDir string) *scenario.TestCase {
	return scenario.New("vttest_launch", "VT Test - Launch menu display").
		Type("vttest").
		Key("Return").
		Sleep(time.Second).
		WithReference(filepath.Join(referenceDir, "vttest", "launch.sh.ghostty.png"))
}

// VTTestMenu1 starts vttest, selects menu option 1 and advances to the
// given subtest, 1 through 6. Subtest 1 is the first screen of the
// option; each further subtest is one more Return press.
func VTTestMenu1(referenceDir string, subtest int) *scenario.TestCase {
	tc := scenario.New(fmt.Sprintf("vttest_1_%d", subtest), menu1Descriptions[subtest]).
		Type("vttest").
		Key("Return").
		Sleep(time.Second).
		Type("1").
		Key("Return")
	for i := 1; i < subtest; i++ {
		tc.Sleep(menuSettle).Key("Return")
	}
	return tc.WithReference(filepath.Join(referenceDir, "vttest", fmt.Sprintf("1_%d.sh.ghostty.png", subtest)))
}

// WrapTest runs the wraptest program, which prints a matrix of line
// wrapping scenarios.
func WrapTest(referenceDir string) *scenario.TestCase {
	return scenario.New("wraptest", "Line wrapping test matrix").
		Type("wraptest").
		Key("Return").
		WithReference(filepath.Join(referenceDir, "wraptest.sh.ghostty.png"))
}
