// Package base содержит общие помощники адаптеров на database/sql:
// перевод параметров :name в синтаксис драйвера и чтение строк в map.
package base
