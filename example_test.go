package configmanager_test

import (
	"fmt"
	"os"
	"path/filepath"

	configmanager "github.com/MikeDP/ConfigManager"
	"github.com/MikeDP/ConfigManager/store"
)

func Example() {
	dir, err := os.MkdirTemp("", "configmanager")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	repo := &store.FileRepository{Path: filepath.Join(dir, "app.conf")}
	cfg, err := configmanager.NewWithRepository(repo)
	if err != nil {
		panic(err)
	}

	cfg.Set("user", "Mike")
	// Assign uses the persisted value when present, the default otherwise.
	timeout := cfg.Assign("timeout", 30)

	fmt.Println(cfg.Get("user"), timeout)
	fmt.Println(cfg.Get("never_set"))

	if err := cfg.Save(); err != nil {
		panic(err)
	}
	// Output:
	// Mike 30
	// <nil>
}
