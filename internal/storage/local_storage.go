package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage trzyma pliki płasko w jednym katalogu, pod nadanymi przez
// serwer nazwami dyskowymi. Oryginalne nazwy plików nigdy nie trafiają na
// dysk, żyją tylko w bazie.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: basePath}, nil
}

// pathFor bierze tylko ostatni człon nazwy, więc nazwa z separatorami
// ścieżki nie wyprowadzi zapisu poza basePath.
func (ls *LocalStorage) pathFor(storedName string) string {
	return filepath.Join(ls.basePath, filepath.Base(storedName))
}

func (ls *LocalStorage) Save(storedName string, data io.Reader) error {
	file, err := os.Create(ls.pathFor(storedName))
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, data)
	return err
}

func (ls *LocalStorage) Get(storedName string) (io.ReadCloser, error) {
	file, err := os.Open(ls.pathFor(storedName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s not found: %w", storedName, err)
		}
		return nil, err
	}

	return file, nil
}

func (ls *LocalStorage) Delete(storedName string) error {
	err := os.Remove(ls.pathFor(storedName))
	if os.IsNotExist(err) {
		return nil
	}

	return err
}

// Exists mówi, czy plik fizycznie leży na dysku. Rekord w bazie może
// istnieć bez pliku, gdy ktoś grzebał w katalogu ręcznie.
func (ls *LocalStorage) Exists(storedName string) bool {
	_, err := os.Stat(ls.pathFor(storedName))
	return err == nil
}
