package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"drug-info/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

func pageParams(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func loadDrug(ctx context.Context, db *gorm.DB, query string, args ...interface{}) (*models.Drug, error) {
	var drug models.Drug
	err := db.WithContext(ctx).
		Preload("AlternateIdentifiers", func(tx *gorm.DB) *gorm.DB { return tx.Order("source_name, external_id") }).
		Preload("GeneActions", func(tx *gorm.DB) *gorm.DB { return tx.Order("gene_name, action_key") }).
		Where(query, args...).
		Take(&drug).Error
	if err != nil {
		return nil, err
	}
	return &drug, nil
}

func respondDrug(c *gin.Context, log *zap.Logger, drug *models.Drug, err error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "drug not found"})
			return
		}
		log.Error("Drug-Abfrage fehlgeschlagen", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, drug)
}

func setupDrugRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/drugs")

	rg.GET("", func(c *gin.Context) {
		limit, offset := pageParams(c)
		query := db.WithContext(c.Request.Context()).Model(&models.Drug{})
		// Filter auf Gen, z.B. ?gene=ADH1B
		if gene := c.Query("gene"); gene != "" {
			query = query.Where("drug_id IN (?)", db.Model(&models.GeneAction{}).Select("drug_id").Where("gene_name = ?", gene))
		}

		drugs := []models.Drug{}
		if err := query.Order("created_at, drug_id").Limit(limit).Offset(offset).Find(&drugs).Error; err != nil {
			log.Error("Drug-Liste fehlgeschlagen", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, drugs)
	})

	rg.GET("/lookup", func(c *gin.Context) {
		smiles := c.Query("smiles")
		if smiles == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter smiles is required"})
			return
		}
		drug, err := loadDrug(c.Request.Context(), db, "smiles = ?", smiles)
		respondDrug(c, log, drug, err)
	})

	rg.GET("/:id", func(c *gin.Context) {
		drug, err := loadDrug(c.Request.Context(), db, "drug_id = ?", c.Param("id"))
		respondDrug(c, log, drug, err)
	})

	router.GET("/alternate-identifiers/:source/:external_id", func(c *gin.Context) {
		var alt models.AlternateIdentifier
		err := db.WithContext(c.Request.Context()).
			Where("source_name = ? AND external_id = ?", c.Param("source"), c.Param("external_id")).
			Order("drug_id").
			Take(&alt).Error
		if err != nil {
			respondDrug(c, log, nil, err)
			return
		}
		drug, err := loadDrug(c.Request.Context(), db, "drug_id = ?", alt.DrugID)
		respondDrug(c, log, drug, err)
	})
}
