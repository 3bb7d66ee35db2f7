package nodectl

// StatementKind identifies which variant a Statement/StatementResult carries.
type StatementKind int

const (
	// KindCreateTableSpace is the DDL statement that registers a new tablespace.
	KindCreateTableSpace StatementKind = iota
	// KindDML is an insert/update/delete against a table in a tablespace.
	KindDML
	// KindGet is a point lookup.
	KindGet
)

// Statement is the tagged union dispatched to the Node Manager. Concrete
// payloads implement the marker method so only this package's statement
// types satisfy the interface, mirroring the teacher's generic-payload
// pattern of a narrow marker rather than a reflection-heavy variant type.
type Statement interface {
	statement()
	// TableSpace returns the target tablespace name.
	TableSpace() TableSpaceName
	// TransactionId returns the owning transaction, or NilUUID for none.
	TransactionId() UUID
	// Kind returns the statement's variant tag.
	Kind() StatementKind
}

// baseStatement factors the fields common to every statement variant.
type baseStatement struct {
	tableSpace    TableSpaceName
	transactionId UUID
}

func (b baseStatement) TableSpace() TableSpaceName { return b.tableSpace }
func (b baseStatement) TransactionId() UUID        { return b.transactionId }

// CreateTableSpaceStatement is the DDL payload for creating a tablespace.
// Per §6 it must never occur inside a transaction.
type CreateTableSpaceStatement struct {
	baseStatement
	Name     TableSpaceName
	Leader   NodeId
	Replicas []NodeId
}

func (CreateTableSpaceStatement) statement()          {}
func (CreateTableSpaceStatement) Kind() StatementKind { return KindCreateTableSpace }

// NewCreateTableSpaceStatement builds a CreateTableSpace statement. Its
// tablespace target is the name of the tablespace being created, and it
// never carries a transaction id.
func NewCreateTableSpaceStatement(name TableSpaceName, leader NodeId, replicas []NodeId) CreateTableSpaceStatement {
	return CreateTableSpaceStatement{
		baseStatement: baseStatement{tableSpace: name},
		Name:          name,
		Leader:        leader,
		Replicas:      replicas,
	}
}

// DMLStatement is an insert/update/delete against a table.
type DMLStatement struct {
	baseStatement
	Table string
	Key   []byte
	Value []byte
}

func (DMLStatement) statement()          {}
func (DMLStatement) Kind() StatementKind { return KindDML }

// NewDMLStatement builds a DML statement targeting tableSpace.
func NewDMLStatement(tableSpace TableSpaceName, transactionId UUID, table string, key, value []byte) DMLStatement {
	return DMLStatement{
		baseStatement: baseStatement{tableSpace: tableSpace, transactionId: transactionId},
		Table:         table,
		Key:           key,
		Value:         value,
	}
}

// GetStatement is a point lookup against a table.
type GetStatement struct {
	baseStatement
	Table string
	Key   []byte
}

func (GetStatement) statement()          {}
func (GetStatement) Kind() StatementKind { return KindGet }

// NewGetStatement builds a Get statement targeting tableSpace.
func NewGetStatement(tableSpace TableSpaceName, transactionId UUID, table string, key []byte) GetStatement {
	return GetStatement{
		baseStatement: baseStatement{tableSpace: tableSpace, transactionId: transactionId},
		Table:         table,
		Key:           key,
	}
}

// StatementResult is the tagged union returned by executeStatement, matching
// the statement kind.
type StatementResult interface {
	result()
	Kind() StatementKind
}

// DDLResult is returned for CreateTableSpace (and other DDL).
type DDLResult struct{}

func (DDLResult) result()              {}
func (DDLResult) Kind() StatementKind  { return KindCreateTableSpace }

// DMLResult is returned for insert/update/delete statements.
type DMLResult struct {
	UpdateCount int
	Key         []byte
}

func (DMLResult) result()             {}
func (DMLResult) Kind() StatementKind { return KindDML }

// GetResult is returned for point lookups. Record is nil when not found.
type GetResult struct {
	Record []byte
}

func (GetResult) result()             {}
func (GetResult) Kind() StatementKind { return KindGet }
