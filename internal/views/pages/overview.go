package pages

import "hopper/internal/views/components"

// Overview is the static sales content of the dashboard.
type Overview struct {
	Nav      []components.NavItem
	Metrics  []components.Metric
	Sales    []components.SalesPoint
	Products []components.Product
	Orders   []components.Order
}

// DefaultOverview returns the demo figures shown until sales data is connected.
func DefaultOverview() Overview {
	return Overview{
		Nav: []components.NavItem{
			{Icon: "▣", Label: "Overview", Active: true},
			{Icon: "⬚", Label: "Products"},
			{Icon: "👥", Label: "Customers"},
			{Icon: "🧾", Label: "Orders"},
			{Icon: "📦", Label: "Shipment"},
			{Icon: "⚙︎", Label: "Store Settings"},
			{Icon: "∞", Label: "Platform Links"},
			{Icon: "💬", Label: "Feedback"},
			{Icon: "?", Label: "Help & Support"},
		},
		Metrics: []components.Metric{
			{Title: "AVG. Order Value", Label: "Across all connected platforms", Value: "$77.21", Change: "+3.16%", Positive: true, Icon: "💳", Highlight: true},
			{Title: "Total Orders", Label: "Last 30 days", Value: "2,107", Change: "-1.18%", Icon: "🧾"},
			{Title: "Lifetime Value", Label: "Per active customer", Value: "$653", Change: "+2.24%", Positive: true, Icon: "✨"},
		},
		Sales: []components.SalesPoint{
			{Month: "Jun", Revenue: 40, Orders: 65},
			{Month: "Jul", Revenue: 55, Orders: 45},
			{Month: "Aug", Revenue: 47, Orders: 60},
			{Month: "Sep", Revenue: 60, Orders: 40},
			{Month: "Oct", Revenue: 72, Orders: 52},
			{Month: "Nov", Revenue: 64, Orders: 56},
			{Month: "Dec", Revenue: 80, Orders: 35},
		},
		Products: []components.Product{
			{Name: "Red Tape Sports Shoes", Sales: "12,429 sales", Stock: "135 in stock", Icon: "👟"},
			{Name: "Fastrack FS1 Pro Smartwatch", Sales: "7,543 sales", Stock: "79 in stock", Icon: "⌚"},
			{Name: "Leriya Fashion Men's Shirt", Sales: "7,222 sales", Stock: "465 in stock", Icon: "👕"},
		},
		Orders: []components.Order{
			{ID: "#2456JL", Product: "Nike Sportswear", Date: "Jan 12, 12:23 pm", Price: "$134.00", Payment: "Transfer", Status: "Processing", Tone: "indigo"},
			{ID: "#5435DF", Product: "Acqua di Parma", Date: "May 01, 01:13 pm", Price: "$23.00", Payment: "Credit card", Status: "Completed", Tone: "emerald"},
			{ID: "#9876XC", Product: "Allen Solly", Date: "Sep 20, 09:08 am", Price: "$441.00", Payment: "Transfer", Status: "Completed", Tone: "emerald"},
		},
	}
}
