package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"kmp.co.th/assistant-backend/internal/erp"
)

const defaultLimit = 10

// NewERPRegistry builds the static tool set: read-only queries against
// the ERP host, one registry entry per capability the assistant
// advertises to the model.
func NewERPRegistry(client erp.Client) *Registry {
	r := NewRegistry()

	r.Register(Descriptor{
		Name:        "check_stock",
		Description: "Check stock levels for items in warehouses. Use when asked about quantities on hand, reserved or projected stock.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"item_code": {Type: genai.TypeString, Description: "Exact item code"},
				"warehouse": {Type: genai.TypeString, Description: "Warehouse name"},
				"query":     {Type: genai.TypeString, Description: "Free-text item search"},
				"limit":     {Type: genai.TypeInteger, Description: "Maximum number of results"},
			},
		},
	}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		opts := erp.ListOptions{
			Fields:  []string{"item_code", "warehouse", "actual_qty", "reserved_qty", "ordered_qty", "projected_qty"},
			Filters: map[string]interface{}{},
			OrderBy: "actual_qty desc",
			Limit:   intArg(args, "limit", defaultLimit),
		}
		if code := stringArg(args, "item_code"); code != "" {
			opts.Filters["item_code"] = code
		}
		if wh := stringArg(args, "warehouse"); wh != "" {
			opts.Filters["warehouse"] = wh
		}
		if q := stringArg(args, "query"); q != "" {
			opts.OrFilters = map[string]interface{}{
				"item_code": likeFilter(q),
			}
		}
		return client.GetList(ctx, "Bin", opts)
	})

	r.Register(Descriptor{
		Name:        "get_order_status",
		Description: "Look up the status of sales orders or purchase orders by number, customer, supplier or status.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"order_type": {Type: genai.TypeString, Description: "Sales Order or Purchase Order", Enum: []string{"Sales Order", "Purchase Order"}},
				"order_name": {Type: genai.TypeString, Description: "Order number"},
				"customer":   {Type: genai.TypeString, Description: "Customer name, for sales orders"},
				"supplier":   {Type: genai.TypeString, Description: "Supplier name, for purchase orders"},
				"status":     {Type: genai.TypeString, Description: "Order status, e.g. Draft, To Deliver and Bill, Completed"},
				"query":      {Type: genai.TypeString, Description: "Free-text search"},
				"limit":      {Type: genai.TypeInteger, Description: "Maximum number of results"},
			},
		},
	}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		doctype := stringArg(args, "order_type")
		if doctype != "Sales Order" && doctype != "Purchase Order" {
			doctype = "Sales Order"
		}

		filters := map[string]interface{}{"docstatus": []interface{}{"!=", 2}}
		if name := stringArg(args, "order_name"); name != "" {
			filters["name"] = likeFilter(name)
		}
		if status := stringArg(args, "status"); status != "" {
			filters["status"] = status
		}
		if customer := stringArg(args, "customer"); customer != "" && doctype == "Sales Order" {
			filters["customer"] = likeFilter(customer)
		}
		if supplier := stringArg(args, "supplier"); supplier != "" && doctype == "Purchase Order" {
			filters["supplier"] = likeFilter(supplier)
		}

		var orFilters map[string]interface{}
		if q := stringArg(args, "query"); q != "" {
			orFilters = map[string]interface{}{"name": likeFilter(q)}
			if doctype == "Sales Order" {
				orFilters["customer_name"] = likeFilter(q)
			} else {
				orFilters["supplier_name"] = likeFilter(q)
			}
		}

		fields := []string{"name", "status", "transaction_date", "grand_total", "currency"}
		if doctype == "Sales Order" {
			fields = append(fields, "customer", "customer_name", "delivery_date", "per_delivered", "per_billed")
		} else {
			fields = append(fields, "supplier", "supplier_name", "schedule_date", "per_received", "per_billed")
		}

		return client.GetList(ctx, doctype, erp.ListOptions{
			Fields:    fields,
			Filters:   filters,
			OrFilters: orFilters,
			OrderBy:   "modified desc",
			Limit:     intArg(args, "limit", defaultLimit),
		})
	})

	r.Register(Descriptor{
		Name:        "search_customer_supplier",
		Description: "Find customers or suppliers by name or code.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query":    {Type: genai.TypeString, Description: "Name or code to search for"},
				"doc_type": {Type: genai.TypeString, Description: "Restrict to one side", Enum: []string{"Customer", "Supplier"}},
				"limit":    {Type: genai.TypeInteger, Description: "Maximum number of results"},
			},
			Required: []string{"query"},
		},
	}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		query := stringArg(args, "query")
		limit := intArg(args, "limit", defaultLimit)
		docType := stringArg(args, "doc_type")

		type target struct {
			doctype   string
			nameField string
			fields    []string
		}
		targets := []target{
			{"Customer", "customer_name", []string{"name", "customer_name", "customer_group", "territory", "mobile_no", "email_id"}},
			{"Supplier", "supplier_name", []string{"name", "supplier_name", "supplier_group", "country", "mobile_no", "email_id"}},
		}

		var results []map[string]interface{}
		for _, t := range targets {
			if docType != "" && docType != t.doctype {
				continue
			}
			rows, err := client.GetList(ctx, t.doctype, erp.ListOptions{
				Fields: t.fields,
				OrFilters: map[string]interface{}{
					"name":      likeFilter(query),
					t.nameField: likeFilter(query),
				},
				Limit: limit,
			})
			if err != nil {
				return nil, err
			}
			for _, row := range rows {
				row["doctype"] = t.doctype
				results = append(results, row)
			}
		}
		return results, nil
	})

	r.Register(Descriptor{
		Name:        "search_bom",
		Description: "Search submitted bills of materials by BOM number, item code or item name, including their component lines.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {Type: genai.TypeString, Description: "BOM number, item code or item name"},
				"limit": {Type: genai.TypeInteger, Description: "Maximum number of results"},
			},
			Required: []string{"query"},
		},
	}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		query := stringArg(args, "query")
		boms, err := client.GetList(ctx, "BOM", erp.ListOptions{
			Fields:  []string{"name", "item", "item_name", "quantity", "total_cost", "is_active", "is_default"},
			Filters: map[string]interface{}{"docstatus": 1},
			OrFilters: map[string]interface{}{
				"name":      likeFilter(query),
				"item":      likeFilter(query),
				"item_name": likeFilter(query),
			},
			OrderBy: "modified desc",
			Limit:   intArg(args, "limit", defaultLimit),
		})
		if err != nil {
			return nil, err
		}

		for _, bom := range boms {
			name, _ := bom["name"].(string)
			items, err := client.GetList(ctx, "BOM Item", erp.ListOptions{
				Fields:  []string{"item_code", "item_name", "qty", "rate", "amount"},
				Filters: map[string]interface{}{"parent": name},
			})
			if err != nil {
				return nil, err
			}
			bom["items"] = items
		}
		return boms, nil
	})

	r.Register(Descriptor{
		Name:        "search_erp_general",
		Description: "Broad search across several record types at once: items, item groups, warehouses, customers and suppliers.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {Type: genai.TypeString, Description: "Search text"},
				"doc_types": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "Record types to search, e.g. [\"Item\", \"Customer\"]; all when omitted",
				},
				"limit": {Type: genai.TypeInteger, Description: "Maximum number of results per record type"},
			},
			Required: []string{"query"},
		},
	}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		query := stringArg(args, "query")
		limit := intArg(args, "limit", defaultLimit)

		configs := map[string]erp.ListOptions{
			"Item": {
				Fields:    []string{"name", "item_name", "item_group", "stock_uom", "description"},
				OrFilters: map[string]interface{}{"name": likeFilter(query), "item_name": likeFilter(query), "description": likeFilter(query)},
			},
			"Item Group": {
				Fields:    []string{"name", "parent_item_group", "is_group"},
				OrFilters: map[string]interface{}{"name": likeFilter(query)},
			},
			"Warehouse": {
				Fields:    []string{"name", "warehouse_name", "company", "is_group"},
				OrFilters: map[string]interface{}{"name": likeFilter(query), "warehouse_name": likeFilter(query)},
			},
			"Customer": {
				Fields:    []string{"name", "customer_name", "customer_group", "territory"},
				OrFilters: map[string]interface{}{"name": likeFilter(query), "customer_name": likeFilter(query)},
			},
			"Supplier": {
				Fields:    []string{"name", "supplier_name", "supplier_group", "country"},
				OrFilters: map[string]interface{}{"name": likeFilter(query), "supplier_name": likeFilter(query)},
			},
		}

		doctypes := stringSliceArg(args, "doc_types")
		if len(doctypes) == 0 {
			doctypes = []string{"Item", "Item Group", "Warehouse", "Customer", "Supplier"}
		}

		results := map[string]interface{}{}
		for _, dt := range doctypes {
			opts, ok := configs[dt]
			if !ok {
				continue
			}
			opts.Limit = limit
			rows, err := client.GetList(ctx, dt, opts)
			if err != nil {
				return nil, err
			}
			results[dt] = rows
		}
		return results, nil
	})

	r.Register(Descriptor{
		Name:        "get_system_info",
		Description: "Fetch system overview: companies, fiscal years and record counts. Use when asked about the system itself.",
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: map[string]*genai.Schema{},
		},
	}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		info := map[string]interface{}{}

		companies, err := client.GetList(ctx, "Company", erp.ListOptions{
			Fields: []string{"name", "company_name", "default_currency", "country"},
		})
		if err != nil {
			return nil, err
		}
		info["companies"] = companies

		fiscalYears, err := client.GetList(ctx, "Fiscal Year", erp.ListOptions{
			Fields:  []string{"name", "year_start_date", "year_end_date"},
			Filters: map[string]interface{}{"disabled": 0},
			OrderBy: "year_start_date desc",
			Limit:   3,
		})
		if err != nil {
			return nil, err
		}
		info["fiscal_years"] = fiscalYears

		for _, dt := range []string{"Item", "Customer", "Supplier", "Sales Order", "Purchase Order", "BOM"} {
			count, err := client.Count(ctx, dt, nil)
			if err != nil {
				return nil, err
			}
			key := strings.ToLower(strings.ReplaceAll(dt, " ", "_")) + "_count"
			info[key] = count
		}
		return info, nil
	})

	r.Register(Descriptor{
		Name:        "get_recent_activity",
		Description: "Fetch the most recently modified orders, stock entries and items.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"limit": {Type: genai.TypeInteger, Description: "Maximum number of results per record type"},
			},
		},
	}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		limit := intArg(args, "limit", defaultLimit)

		targets := []struct {
			doctype string
			fields  []string
		}{
			{"Sales Order", []string{"name", "customer", "grand_total", "status", "modified"}},
			{"Purchase Order", []string{"name", "supplier", "grand_total", "status", "modified"}},
			{"Stock Entry", []string{"name", "stock_entry_type", "posting_date", "modified"}},
			{"Item", []string{"name", "item_name", "creation", "modified"}},
		}

		activity := map[string]interface{}{}
		for _, t := range targets {
			rows, err := client.GetList(ctx, t.doctype, erp.ListOptions{
				Fields:  t.fields,
				OrderBy: "modified desc",
				Limit:   limit,
			})
			if err != nil {
				return nil, err
			}
			activity[t.doctype] = rows
		}
		return activity, nil
	})

	return r
}

func likeFilter(query string) []interface{} {
	return []interface{}{"like", fmt.Sprintf("%%%s%%", query)}
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

// intArg tolerates the float64 the model's JSON arguments decode to.
func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return fallback
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
