// Package all wires every built-in relational backend into the storage
// factory. Importing it (blank import) runs each backend's init, making the
// kinds "mysql", "postgres", "mssql", and "sqlite" available to storage.New.
package all

import (
	_ "reviewetl/internal/storage/mssql"
	_ "reviewetl/internal/storage/mysql"
	_ "reviewetl/internal/storage/postgres"
	_ "reviewetl/internal/storage/sqlite"
)
