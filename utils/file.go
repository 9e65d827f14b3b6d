package utils

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const STAGING_PREFIX = "."

// 在parentPath下创建隐藏的临时目录，完成后可通过os.Rename原子地改为正式名称
func GetStagingSubDir(parentPath, name string) (path string, err error) {
	path = filepath.Join(parentPath, STAGING_PREFIX+name+"."+uuid.NewString())
	err = os.Mkdir(path, os.ModePerm)
	return
}

// 逐级创建目录，已存在时不报错
func EnsureDirs(paths ...string) (err error) {
	for _, p := range paths {
		if err = os.MkdirAll(p, os.ModePerm); err != nil {
			return
		}
	}
	return
}

func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func GetFilenameWithoutExt(path string) (name string) {
	name = filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(path))
	return
}

// 列出一级子目录名（已排序），忽略隐藏的临时目录
func ListSubDirs(dir string) (names []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), STAGING_PREFIX) {
			continue
		}
		names = append(names, e.Name())
	}
	return
}

// 列出dir中文件名包含sub的文件（已排序）
func FindFilesContaining(dir, sub string) (paths []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), sub) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return
}

// 递归列出root下所有文件的绝对路径（已排序）
func ListFiles(root string) (paths []string, err error) {
	root, err = filepath.Abs(root)
	if err != nil {
		return
	}
	err = filepath.Walk(root, func(path string, info os.FileInfo, e error) error {
		if e != nil {
			return e
		}
		if !info.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	sort.Strings(paths)
	return
}
