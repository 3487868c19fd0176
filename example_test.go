package sheetmap_test

import (
	"context"
	"fmt"

	"github.com/nao1215/sheetmap"
)

func ExampleInferType() {
	samples := []any{"2024-01-15", "2024-02-20", "2024-03-25", "2024-04-30", "2024-05-15"}
	fmt.Println(sheetmap.InferType(samples, "Closing Date"))

	samples = []any{"$1,234.56", "$2,345.67", "$3,456.78", "$4,567.89", "$5,678.90"}
	fmt.Println(sheetmap.InferType(samples, "Payment"))
	// Output:
	// date
	// number
}

func ExampleSimilarity() {
	fmt.Printf("%.2f\n", sheetmap.Similarity("Loan ID", "loan_id"))
	fmt.Printf("%.2f\n", sheetmap.Similarity("P&I Amount", "p_i_amount"))
	// Output:
	// 1.00
	// 1.00
}

func ExampleEngine_ProcessSheet() {
	sheet := sheetmap.SheetSnapshot{
		SheetName: "Loans",
		Headers:   []string{"Loan ID", "Borrower Name"},
		SampleData: []map[string]any{
			{"Loan ID": "0000123", "Borrower Name": "Alice Smith"},
		},
		RowCount: 1,
	}
	schema := sheetmap.SchemaSnapshot{Tables: map[string]sheetmap.TableSnapshot{
		"loans": {
			Name: "loans",
			Columns: []sheetmap.ColumnSnapshot{
				{Name: "loan_id", DataType: "text"},
				{Name: "borrower_name", DataType: "text"},
			},
		},
	}}

	engine := sheetmap.NewEngine()
	state := engine.ProcessSheet(context.Background(), sheet, schema, sheetmap.ProcessOptions{})

	fmt.Println("table:", state.SelectedTable)
	for _, header := range state.Headers {
		m, _ := state.Mapping(header)
		fmt.Printf("%s -> %s\n", header, m.MappedColumn)
	}
	// Output:
	// table: loans
	// Loan ID -> loan_id
	// Borrower Name -> borrower_name
}

func ExampleNewSession() {
	sheet := sheetmap.SheetSnapshot{
		SheetName: "Loans",
		Headers:   []string{"Loan ID"},
		SampleData: []map[string]any{
			{"Loan ID": "0000123"},
		},
		RowCount: 1,
	}
	schema := sheetmap.SchemaSnapshot{Tables: map[string]sheetmap.TableSnapshot{
		"loans": {
			Name:    "loans",
			Columns: []sheetmap.ColumnSnapshot{{Name: "loan_id", DataType: "text"}},
		},
	}}

	session := sheetmap.NewSession(nil, schema)
	if err := session.Analyze(context.Background(), []sheetmap.SheetSnapshot{sheet}); err != nil {
		fmt.Println(err)
		return
	}

	state, _ := session.Sheet("Loans")
	fmt.Println("status:", state.Status)
	fmt.Println("review:", state.ReviewStatus)
	// Output:
	// status: ready
	// review: approved
}
