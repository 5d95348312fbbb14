/*
Package atomicfile writes files so that they are either fully written
or not there at all.

A log export or a compressed copy of a log that was only half written
looks valid until someone tries to restore from it. To avoid that we:

- write to a temporary file in the destination directory

- check errors from `Write()`, `Sync()` and `Close()`

- rename to the destination only if all of them succeeded, otherwise
remove the temporary file

Usage:

	func writeToFileAtomically(filePath string, data []byte) error {
		w, err := atomicfile.New(filePath)
		if err != nil {
			return err
		}
		// removes the temporary file if we return early
		defer w.RemoveIfNotClosed()

		_, err = w.Write(data)
		if err != nil {
			return err
		}
		return w.Close()
	}
*/
package atomicfile
