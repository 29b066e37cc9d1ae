package statistics

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/subfoxapp/SubFox/app/models"
	"github.com/subfoxapp/SubFox/internal/pkg/cache"
	"github.com/subfoxapp/SubFox/internal/pkg/database"
)

const (
	CacheKeyUsers         = "statistics:users:total"
	CacheKeySubscriptions = "statistics:subscriptions:total"
	CacheKeyMonthlySpend  = "statistics:spend:monthly"
	CacheExpiration       = 30 * time.Minute
)

// StatisticsData holds the aggregate numbers shown on the public stats endpoint
type StatisticsData struct {
	TotalUsers         int
	TotalSubscriptions int
	MonthlySpend       float64
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache checks whether the cache refresh interval has elapsed
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached numbers when they are older
// than the refresh interval
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		log.Println("Updating statistics cache...")
		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			log.Println("Statistics cache updated")
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next read to refresh the cache
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache recomputes all statistics and stores them in the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting total users: %v", err)
		return err
	}

	var totalSubscriptions int64
	if err := db.Model(&models.Subscription{}).Count(&totalSubscriptions).Error; err != nil {
		log.Printf("Error counting total subscriptions: %v", err)
		return err
	}

	monthlySpend, err := computeMonthlySpend()
	if err != nil {
		log.Printf("Error computing monthly spend: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total users: %v", err)
		return err
	}
	if err := cache.Set(CacheKeySubscriptions, strconv.FormatInt(totalSubscriptions, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total subscriptions: %v", err)
		return err
	}
	if err := cache.Set(CacheKeyMonthlySpend, strconv.FormatFloat(monthlySpend, 'f', 2, 64), CacheExpiration); err != nil {
		log.Printf("Error caching monthly spend: %v", err)
		return err
	}

	log.Printf("Statistics updated in cache: Total Users: %d, Total Subscriptions: %d, Monthly Spend: %.2f",
		totalUsers, totalSubscriptions, monthlySpend)

	return nil
}

// computeMonthlySpend sums the normalized monthly price over all tracked
// subscriptions. Normalization depends on the billing cycle, so the sum is
// done in Go rather than SQL.
func computeMonthlySpend() (float64, error) {
	db := database.GetDB()

	var subs []models.Subscription
	if err := db.Find(&subs).Error; err != nil {
		return 0, err
	}

	var total float64
	for i := range subs {
		total += subs[i].MonthlyPrice()
	}
	return total, nil
}

// GetTotalUsers returns the total number of users from cache or database
func GetTotalUsers() int {
	val, err := cache.GetInt(CacheKeyUsers)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
			log.Printf("Error counting total users: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyUsers, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total users: %v", err)
		}

		return int(count)
	}

	return val
}

// GetTotalSubscriptions returns the total number of subscriptions from cache or database
func GetTotalSubscriptions() int {
	val, err := cache.GetInt(CacheKeySubscriptions)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.Subscription{}).Count(&count).Error; err != nil {
			log.Printf("Error counting total subscriptions: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeySubscriptions, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total subscriptions: %v", err)
		}

		return int(count)
	}

	return val
}

// GetMonthlySpend returns the summed monthly spend from cache or database
func GetMonthlySpend() float64 {
	val, err := cache.Get(CacheKeyMonthlySpend)
	if err != nil {
		spend, cerr := computeMonthlySpend()
		if cerr != nil {
			log.Printf("Error computing monthly spend: %v", cerr)
			return 0
		}

		if err := cache.Set(CacheKeyMonthlySpend, strconv.FormatFloat(spend, 'f', 2, 64), CacheExpiration); err != nil {
			log.Printf("Error caching monthly spend: %v", err)
		}

		return spend
	}

	spend, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0
	}

	return spend
}

// GetStatisticsData returns all statistics as one structure
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TotalUsers:         GetTotalUsers(),
		TotalSubscriptions: GetTotalSubscriptions(),
		MonthlySpend:       GetMonthlySpend(),
	}
}
