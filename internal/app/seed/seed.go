// Package seed provisions accounts, shops and menus from YAML fixtures.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/money"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/shop"
	adminsvc "github.com/R3E-Network/canteen_pos/internal/app/services/admin"
	shopsvc "github.com/R3E-Network/canteen_pos/internal/app/services/shops"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
	"github.com/R3E-Network/canteen_pos/pkg/logger"
)

// SampleName selects the built-in fixtures instead of a file path.
const SampleName = "sample"

//go:embed sample.yaml
var sample []byte

// Fixtures is the document layout of a seed file.
type Fixtures struct {
	Admins   []Admin   `yaml:"admins"`
	Students []Student `yaml:"students"`
	Shops    []Shop    `yaml:"shops"`
}

type Admin struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

type Student struct {
	ID       string      `yaml:"id"`
	Name     string      `yaml:"name"`
	Password string      `yaml:"password"`
	Balance  money.Cents `yaml:"balance"`
}

type Shop struct {
	Name     string     `yaml:"name"`
	Owner    string     `yaml:"owner"`
	Password string     `yaml:"password"`
	ImageURL string     `yaml:"image_url"`
	Menu     []MenuItem `yaml:"menu"`
}

type MenuItem struct {
	Name     string      `yaml:"name"`
	Price    money.Cents `yaml:"price"`
	Cost     money.Cents `yaml:"cost"`
	Category string      `yaml:"category"`
	ImageURL string      `yaml:"image_url"`
}

// Sample returns the built-in demo fixtures.
func Sample() (*Fixtures, error) {
	return Parse(sample)
}

// Load reads fixtures from path, or the built-in sample when path is
// SampleName.
func Load(path string) (*Fixtures, error) {
	if path == SampleName {
		return Sample()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a fixtures document.
func Parse(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i, a := range f.Admins {
		if a.Username == "" || a.Password == "" {
			return nil, fmt.Errorf("admin %d: username and password are required", i)
		}
	}
	for i, st := range f.Students {
		if st.ID == "" || st.Password == "" {
			return nil, fmt.Errorf("student %d: id and password are required", i)
		}
	}
	for i, sh := range f.Shops {
		if sh.Name == "" || sh.Password == "" {
			return nil, fmt.Errorf("shop %d: name and password are required", i)
		}
	}
	return &f, nil
}

// Result counts what Apply created. Records that already existed are skipped.
type Result struct {
	Admins    int
	Students  int
	Shops     int
	MenuItems int
}

// Apply creates every fixture that does not exist yet. Running it twice is a
// no-op on the second pass.
func Apply(ctx context.Context, f *Fixtures, admins *adminsvc.Service, shops *shopsvc.Service, log *logger.Logger) (Result, error) {
	if log == nil {
		log = logger.NewDefault("seed")
	}
	var res Result

	for _, a := range f.Admins {
		created, err := skipDuplicate(admins.CreateAdmin(ctx, a.Username, a.Name, a.Password))
		if err != nil {
			return res, fmt.Errorf("admin %s: %w", a.Username, err)
		}
		if created {
			res.Admins++
		}
	}

	for _, st := range f.Students {
		created, err := skipDuplicate(admins.CreateStudent(ctx, st.ID, adminsvc.StudentInput{
			Name:     st.Name,
			Password: st.Password,
			Balance:  st.Balance,
		}))
		if err != nil {
			return res, fmt.Errorf("student %s: %w", st.ID, err)
		}
		if created {
			res.Students++
		}
	}

	existing, err := admins.ListShops(ctx)
	if err != nil {
		return res, err
	}
	byName := make(map[string]shop.Shop, len(existing))
	for _, sh := range existing {
		byName[sh.Name] = sh
	}

	for _, fs := range f.Shops {
		sh, ok := byName[fs.Name]
		if !ok {
			sh, err = admins.CreateShop(ctx, fs.Name, fs.Owner, fs.Password, fs.ImageURL)
			if err != nil {
				return res, fmt.Errorf("shop %s: %w", fs.Name, err)
			}
			res.Shops++
		}
		for _, item := range fs.Menu {
			created, err := skipDuplicate(shops.AddMenuItem(ctx, sh.ID, shopsvc.NewItem{
				Name:     item.Name,
				Price:    item.Price,
				Cost:     item.Cost,
				Category: item.Category,
				ImageURL: item.ImageURL,
			}))
			if err != nil {
				return res, fmt.Errorf("shop %s item %s: %w", fs.Name, item.Name, err)
			}
			if created {
				res.MenuItems++
			}
		}
	}

	log.WithField("admins", res.Admins).
		WithField("students", res.Students).
		WithField("shops", res.Shops).
		WithField("menu_items", res.MenuItems).
		Info("seed applied")
	return res, nil
}

func skipDuplicate[T any](_ T, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, apperrors.ErrDuplicateName) {
		return false, nil
	}
	return false, err
}
