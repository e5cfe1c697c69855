package stationdb

import (
	"aprsd/internal/models"
	"aprsd/internal/providers"
	"aprsd/internal/stationdb/interfaces"
	"bytes"
	"errors"
	"os"
)

// FileManager writes and reads compressed checkpoint files.
type FileManager struct {
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewFileManager(compressor interfaces.CompressorInterface, logger providers.Logger) *FileManager {
	return &FileManager{
		compressor: compressor,
		logger:     logger,
	}
}

// SaveToFile renders a record stream with write and replaces fileName with
// it. The old file is left untouched if anything fails.
func (f *FileManager) SaveToFile(fileName string, write func(w *models.RecordWriter) error) error {
	var buf bytes.Buffer
	rw := models.NewRecordWriter(&buf)
	if err := write(rw); err != nil {
		return err
	}
	if err := rw.End(); err != nil {
		return err
	}
	data, err := f.compressor.Compress(buf.Bytes())
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

func (f *FileManager) Close() {
	f.compressor.Close()
}

// LoadFromFile feeds the record stream in fileName to read. A missing file
// is not an error; found is false then.
func (f *FileManager) LoadFromFile(fileName string, read func(r *models.RecordReader) error) (found bool, err error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return true, err
	}
	f.logger.Debugf(providers.TypeStore, "Read %d bytes of checkpoint data from %s", len(decompressedData), fileName)
	return true, read(models.NewRecordReader(bytes.NewReader(decompressedData)))
}
