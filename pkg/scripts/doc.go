// Package scripts discovers the SQL files of a script tree and orders them for
// execution.
//
// A script tree is a directory laid out as follows:
//
//	server/db/
//	├── schema.sql          (phase 1, always first when present)
//	├── employees/          (phase 2, subdirectories in lexical order,
//	│   ├── 01_seed.sql      files inside each in lexical order)
//	│   └── 02_roles.sql
//	├── members/
//	│   └── seed.sql
//	└── zz_cleanup.sql      (phase 3, remaining root files in lexical order)
//
// Only files ending in .sql are considered, hidden entries are ignored, and only
// one level of subdirectories is visited. Ordering is byte-wise lexical on names
// and never depends on the order the filesystem lists entries in.
//
// A SumFile records a chained h1 hash per script so that a change to any script,
// or to the order scripts run in, changes the tree's total hash.
package scripts
