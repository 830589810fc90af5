//go:build windows || plan9

package bagit

import "os"

func canRead(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func canWrite(path string) bool {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
			probe := path + string(os.PathSeparator) + ".bagit-write-probe"
			pf, perr := os.Create(probe)
			if perr != nil {
				return false
			}
			pf.Close()
			os.Remove(probe)
			return true
		}
		return false
	}
	f.Close()
	return true
}
