// Пакет filestore — операции с физическими файлами изображений.
// Streaming-запись оригиналов с подсчётом SHA-256 на лету,
// атомарное размещение через temp файл и rename, запись вариантов,
// удаление всех файлов изображения.
package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileStore — управление файлами изображений на диске.
// Файлы каждого тенанта лежат в своей поддиректории.
type FileStore struct {
	// dataDir — корневая директория хранения (PF_DATA_DIR)
	dataDir string
}

// SaveResult — результат сохранения оригинала на диск.
type SaveResult struct {
	// StorageName — имя файла в директории тенанта.
	// Формат: {timestamp}_{sha256[:16]}{ext}
	StorageName string
	// FullPath — абсолютный путь файла на диске
	FullPath string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого файла
	Checksum string
}

// New создаёт новый FileStore. Проверяет и создаёт директорию
// если она не существует.
func New(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &FileStore{dataDir: dataDir}, nil
}

// SaveOriginal записывает оригинал из reader на диск тенанта.
// Имя файла выводится из содержимого: {timestamp}_{sha256[:16]}{ext},
// поэтому повторная загрузка тех же байт не перезаписывает прежний файл.
//
// Паттерн: temp файл с уникальным именем → запись + SHA-256 →
// fsync → atomic rename. Конкурентные загрузки одного тенанта
// не разделяют temp путей. При ошибке temp файл удаляется.
func (fs *FileStore) SaveOriginal(tenant string, reader io.Reader, originalFilename string) (*SaveResult, error) {
	tenantDir := filepath.Join(fs.dataDir, tenant)
	if err := os.MkdirAll(tenantDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию тенанта: %w", err)
	}

	// Имя итогового файла зависит от хэша, поэтому пишем во временный
	// файл с уникальным именем и переименовываем после подсчёта
	tmpPath := filepath.Join(tenantDir, ".upload-"+uuid.New().String()+".tmp")

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	// Streaming запись с одновременным подсчётом SHA-256
	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	checksum := hex.EncodeToString(hasher.Sum(nil))
	storageName := generateStorageName(checksum, originalFilename)
	fullPath := filepath.Join(tenantDir, storageName)

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		StorageName: storageName,
		FullPath:    fullPath,
		Size:        size,
		Checksum:    checksum,
	}, nil
}

// SaveVariant записывает производное изображение тенанта.
// Имя: {base}_{class}.jpg, где base — имя оригинала без расширения.
func (fs *FileStore) SaveVariant(tenant, originalStorageName, class string, data []byte) (string, int64, error) {
	tenantDir := filepath.Join(fs.dataDir, tenant)
	if err := os.MkdirAll(tenantDir, 0o750); err != nil {
		return "", 0, fmt.Errorf("не удалось создать директорию тенанта: %w", err)
	}

	base := strings.TrimSuffix(originalStorageName, filepath.Ext(originalStorageName))
	name := fmt.Sprintf("%s_%s.jpg", base, class)
	fullPath := filepath.Join(tenantDir, name)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", 0, fmt.Errorf("ошибка создания временного файла варианта: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("ошибка записи варианта: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("ошибка fsync варианта: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("ошибка закрытия варианта: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("ошибка атомарного переименования варианта: %w", err)
	}

	return name, int64(len(data)), nil
}

// Open открывает файл тенанта для чтения.
// Вызывающий код обязан закрыть файл.
func (fs *FileStore) Open(tenant, storageName string) (*os.File, error) {
	fullPath := filepath.Join(fs.dataDir, tenant, storageName)

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("файл не найден: %s", storageName)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", storageName, err)
	}
	return f, nil
}

// Delete удаляет файл тенанта с диска.
// Возвращает nil если файл уже не существует.
func (fs *FileStore) Delete(tenant, storageName string) error {
	fullPath := filepath.Join(fs.dataDir, tenant, storageName)

	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", storageName, err)
	}
	return nil
}

// Exists проверяет существование файла тенанта.
func (fs *FileStore) Exists(tenant, storageName string) bool {
	_, err := os.Stat(filepath.Join(fs.dataDir, tenant, storageName))
	return err == nil
}

// FullPath возвращает абсолютный путь к файлу тенанта.
func (fs *FileStore) FullPath(tenant, storageName string) string {
	return filepath.Join(fs.dataDir, tenant, storageName)
}

// DataDir возвращает путь к директории данных.
func (fs *FileStore) DataDir() string {
	return fs.dataDir
}

// generateStorageName генерирует имя оригинала на диске.
// Формат: {timestamp}_{sha256[:16]}{ext}
// Пример: 20260221150405_a1b2c3d4e5f60718.jpg
func generateStorageName(checksum, originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	switch ext {
	case ".jpg", ".jpeg", ".png":
	default:
		ext = ".jpg"
	}

	ts := time.Now().UTC().Format("20060102150405")
	return fmt.Sprintf("%s_%s%s", ts, checksum[:16], ext)
}
