package memory

import (
	"github.com/topmuch/qrsell-sub001/internal/model"
)

type ruleRecord struct {
	Key       string
	Token     string
	SellerKey string
	Rule      model.PromotionRule
}

type sessionRecord struct {
	Key     string
	Token   string
	Seq     int64
	Session model.ScanSession
}

type productRecord struct {
	Key       string
	SellerKey string
	Product   model.Product
}

type sellerRecord struct {
	Key    string
	Seller model.Seller
}

type scanEventRecord struct {
	Seq       int64
	SellerKey string
	Event     model.ScanEvent
}

type auditRecord struct {
	Seq       int64
	SellerKey string
	Log       model.AuditLog
}
