package adapters

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownType - для типа СУБД не зарегистрирован адаптер.
// Повторять подключение с такой ошибкой бессмысленно.
var ErrUnknownType = errors.New("unknown database type")

// Constructor возвращает новый, еще не подключенный адаптер
type Constructor func() Adapter

// Factory - реестр адаптеров по типу СУБД
type Factory struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewFactory создает пустой реестр
func NewFactory() *Factory {
	return &Factory{constructors: make(map[string]Constructor)}
}

// Register добавляет конструктор. Повторная регистрация типа или nil
// вместо конструктора - ошибка программы, поэтому panic.
func (f *Factory) Register(dbType string, constructor Constructor) {
	if constructor == nil {
		panic("adapters: nil constructor for " + dbType)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, dup := f.constructors[dbType]; dup {
		panic("adapters: Register called twice for " + dbType)
	}
	f.constructors[dbType] = constructor
}

// IsRegistered проверяет, есть ли адаптер для dbType
func (f *Factory) IsRegistered(dbType string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.constructors[dbType]
	return ok
}

// Types возвращает зарегистрированные типы по алфавиту
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.constructors))
	for dbType := range f.constructors {
		types = append(types, dbType)
	}
	sort.Strings(types)
	return types
}

// Open создает адаптер, подключает его с учетом cfg.Timeout и проверяет
// соединение через Ping. Возвращенный адаптер сразу годится как mapper.Conn;
// при любой ошибке уже открытое соединение закрывается.
func (f *Factory) Open(ctx context.Context, cfg Config) (Adapter, error) {
	f.mu.RLock()
	constructor, ok := f.constructors[cfg.Type]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownType, cfg.Type, f.Types())
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	adapter := constructor()
	if err := adapter.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Type, err)
	}
	if err := adapter.Ping(ctx); err != nil {
		adapter.Close(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("%s not reachable: %w", cfg.Type, err)
	}

	return adapter, nil
}

var global = NewFactory()

// Register регистрирует адаптер в глобальном реестре; вызывается из init()
// пакетов-адаптеров, поэтому их достаточно импортировать с "_".
func Register(dbType string, constructor Constructor) {
	global.Register(dbType, constructor)
}

// IsRegistered проверяет глобальный реестр
func IsRegistered(dbType string) bool {
	return global.IsRegistered(dbType)
}

// Types возвращает типы глобального реестра
func Types() []string {
	return global.Types()
}

// New открывает адаптер через глобальный реестр:
//
//	adapter, err := adapters.New(ctx, adapters.Config{Type: "sqlite", DSN: "app.db"})
//	if err != nil {
//	    return err
//	}
//	defer adapter.Close(ctx)
//
//	users, err := mapper.New(ctx, adapter, "users")
func New(ctx context.Context, cfg Config) (Adapter, error) {
	return global.Open(ctx, cfg)
}
