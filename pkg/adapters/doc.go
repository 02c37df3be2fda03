/*
Package adapters предоставляет единый интерфейс подключения к различным СУБД
для маппера таблиц (pkg/mapper).

# Архитектура

	┌─────────────────────────────────────────┐
	│    mapper.TableMapper                   │
	│  - схема таблицы (pkg/schema)           │
	│  - построение SQL с параметрами :name   │
	└─────────────────┬───────────────────────┘
	                  │ mapper.Conn
	┌─────────────────▼───────────────────────┐
	│  adapters.Adapter                       │  ← pkg/adapters/adapter.go
	│    Columns / Exec / Query               │
	│    Connect / Close / Ping               │
	│    TableExists / GetTableNames          │
	└─────────────────┬───────────────────────┘
	                  │
	   ┌──────────┬───┴──────┬──────────┐
	┌──▼───┐ ┌────▼─────┐ ┌──▼───┐ ┌────▼──┐
	│SQLite│ │PostgreSQL│ │MySQL │ │MS SQL │
	└──────┘ └──────────┘ └──────┘ └───────┘

Маппер всегда формирует запросы с именованными параметрами в стиле :name.
Каждый адаптер переводит их в нативный синтаксис драйвера
(base.RewriteNamed): SQLite принимает :name как есть, PostgreSQL и MS SQL
получают @name, MySQL - позиционные "?".

Интроспекция возвращает колонки в порядке объявления, а нативные типы
отображаются на TEXT / INTEGER / REAL / OTHER.

# Фабрика

Адаптеры регистрируются в глобальной фабрике в init():

	import _ "github.com/ruslano69/tablemapper/pkg/adapters/sqlite"

	adapter, err := adapters.New(ctx, adapters.Config{Type: "sqlite", DSN: ":memory:"})
*/
package adapters
